package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/dto"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/httpresp"
	"github.com/courtbook/slot-engine/internal/middleware"
	ucBooking "github.com/courtbook/slot-engine/internal/usecase/booking"
	ucCart "github.com/courtbook/slot-engine/internal/usecase/cart"
	ucReconcile "github.com/courtbook/slot-engine/internal/usecase/reconcile"
	ucWaitlist "github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

// ======================================================
// HANDLER
// ======================================================

// StaffHandler serves the review and maintenance commands. Routes are
// mounted behind middleware.RequireStaff.
type StaffHandler struct {
	cartReview    *ucCart.Review
	bookingReview *ucBooking.Review
	attendance    *ucBooking.Attendance
	expireEntry   *ucWaitlist.ExpireEntry
	sweeper       *ucReconcile.Sweeper
}

func NewStaffHandler(
	cartReview *ucCart.Review,
	bookingReview *ucBooking.Review,
	attendance *ucBooking.Attendance,
	expireEntry *ucWaitlist.ExpireEntry,
	sweeper *ucReconcile.Sweeper,
) *StaffHandler {
	return &StaffHandler{
		cartReview:    cartReview,
		bookingReview: bookingReview,
		attendance:    attendance,
		expireEntry:   expireEntry,
		sweeper:       sweeper,
	}
}

// ======================================================
// TRANSACTIONS
// ======================================================

func (h *StaffHandler) ApproveTransaction(c *gin.Context) {
	txID, ok := idParam(c, "id")
	if !ok {
		return
	}

	out, err := h.cartReview.Approve(c.Request.Context(), ucCart.ReviewInput{
		StaffID:       middleware.UserID(c),
		TransactionID: txID,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, out)
}

func (h *StaffHandler) RejectTransaction(c *gin.Context) {
	txID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid rejection reason.")
		return
	}

	out, err := h.cartReview.Reject(c.Request.Context(), ucCart.ReviewInput{
		StaffID:       middleware.UserID(c),
		TransactionID: txID,
		Reason:        req.Reason,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, out)
}

// ======================================================
// BOOKINGS
// ======================================================

func (h *StaffHandler) ApproveBooking(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	b, err := h.bookingReview.Approve(c.Request.Context(), middleware.UserID(c), bookingID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, b)
}

func (h *StaffHandler) RejectBooking(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid rejection reason.")
		return
	}

	b, promos, err := h.bookingReview.Reject(
		c.Request.Context(),
		middleware.UserID(c),
		bookingID,
		req.Reason,
	)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	if promos == nil {
		promos = []ucWaitlist.Promotion{}
	}
	c.JSON(200, gin.H{
		"booking":    b,
		"promotions": promos,
	})
}

func (h *StaffHandler) CheckIn(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	b, err := h.attendance.CheckIn(c.Request.Context(), middleware.UserID(c), bookingID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, b)
}

func (h *StaffHandler) Complete(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	b, err := h.attendance.Complete(c.Request.Context(), middleware.UserID(c), bookingID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, b)
}

// ======================================================
// MAINTENANCE
// ======================================================

func (h *StaffHandler) ExpireWaitlistEntry(c *gin.Context) {
	entryID, ok := idParam(c, "id")
	if !ok {
		return
	}

	res, err := h.expireEntry.Execute(c.Request.Context(), ptr(middleware.UserID(c)), entryID)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, res)
}

func (h *StaffHandler) Reconcile(c *gin.Context) {
	rep, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, rep)
}
