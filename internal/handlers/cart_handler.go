package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/dto"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/httpresp"
	"github.com/courtbook/slot-engine/internal/middleware"
	ucCart "github.com/courtbook/slot-engine/internal/usecase/cart"
)

// ======================================================
// HANDLER
// ======================================================

type CartHandler struct {
	getCart     *ucCart.GetCart
	addItems    *ucCart.AddItems
	removeItem  *ucCart.RemoveItem
	checkout    *ucCart.Checkout
	attachProof *ucCart.AttachProof
}

func NewCartHandler(
	getCart *ucCart.GetCart,
	addItems *ucCart.AddItems,
	removeItem *ucCart.RemoveItem,
	checkout *ucCart.Checkout,
	attachProof *ucCart.AttachProof,
) *CartHandler {
	return &CartHandler{
		getCart:     getCart,
		addItems:    addItems,
		removeItem:  removeItem,
		checkout:    checkout,
		attachProof: attachProof,
	}
}

// ======================================================
// GET
// ======================================================

func (h *CartHandler) Get(c *gin.Context) {
	cart, err := h.getCart.Execute(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	if cart == nil {
		c.JSON(http.StatusOK, gin.H{"cart": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ======================================================
// ADD ITEMS
// ======================================================

func (h *CartHandler) AddItems(c *gin.Context) {
	var req dto.AddCartItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid cart items.")
		return
	}

	userID := middleware.UserID(c)
	isStaff := middleware.IsStaff(c)
	if req.UserID != nil {
		if !isStaff {
			httperr.Forbidden(c, "forbidden", "Only staff can book for another user.")
			return
		}
		userID = *req.UserID
	}

	items := make([]ucCart.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, ucCart.ItemInput{
			CourtID:   it.CourtID,
			Date:      it.Date,
			StartTime: it.StartTime,
			EndTime:   it.EndTime,
			Price:     it.Price,
		})
	}

	out, err := h.addItems.Execute(c.Request.Context(), ucCart.AddItemsInput{
		UserID:  userID,
		IsStaff: isStaff,
		Items:   items,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	// nothing created when every item was rejected
	if len(out.Added) == 0 && len(out.Waitlisted) == 0 {
		httpresp.OK(c, out)
		return
	}
	httpresp.Created(c, out)
}

// ======================================================
// REMOVE ITEM
// ======================================================

func (h *CartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := idParam(c, "id")
	if !ok {
		return
	}

	cart, err := h.removeItem.Execute(c.Request.Context(), middleware.UserID(c), itemID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ======================================================
// CHECKOUT
// ======================================================

func (h *CartHandler) Checkout(c *gin.Context) {
	txID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payment data.")
		return
	}

	out, err := h.checkout.Execute(c.Request.Context(), ucCart.CheckoutInput{
		ActorID:       middleware.UserID(c),
		IsStaff:       middleware.IsStaff(c),
		TransactionID: txID,
		PaymentMethod: req.PaymentMethod,
		ProofRef:      req.ProofRef,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, out)
}

// ======================================================
// PROOF
// ======================================================

func (h *CartHandler) AttachProof(c *gin.Context) {
	txID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.ProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payment proof.")
		return
	}

	tx, err := h.attachProof.Execute(c.Request.Context(), ucCart.AttachProofInput{
		ActorID:       middleware.UserID(c),
		IsStaff:       middleware.IsStaff(c),
		TransactionID: txID,
		PaymentMethod: req.PaymentMethod,
		ProofRef:      req.ProofRef,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, tx)
}
