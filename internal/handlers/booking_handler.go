package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/dto"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/httpresp"
	"github.com/courtbook/slot-engine/internal/middleware"
	ucBooking "github.com/courtbook/slot-engine/internal/usecase/booking"
)

// ======================================================
// HANDLER
// ======================================================

type BookingHandler struct {
	pay    *ucBooking.PayBooking
	cancel *ucBooking.CancelBooking
}

func NewBookingHandler(
	pay *ucBooking.PayBooking,
	cancel *ucBooking.CancelBooking,
) *BookingHandler {
	return &BookingHandler{pay: pay, cancel: cancel}
}

// ======================================================
// PAYMENT
// ======================================================

func (h *BookingHandler) Pay(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payment data.")
		return
	}

	b, err := h.pay.Execute(c.Request.Context(), ucBooking.PayInput{
		ActorID:       middleware.UserID(c),
		IsStaff:       middleware.IsStaff(c),
		BookingID:     bookingID,
		PaymentMethod: req.PaymentMethod,
		ProofRef:      req.ProofRef,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, b)
}

// ======================================================
// CANCEL
// ======================================================

func (h *BookingHandler) Cancel(c *gin.Context) {
	bookingID, ok := idParam(c, "id")
	if !ok {
		return
	}

	b, err := h.cancel.Execute(
		c.Request.Context(),
		middleware.UserID(c),
		middleware.IsStaff(c),
		bookingID,
	)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, b)
}
