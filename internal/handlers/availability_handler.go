package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/dto"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/httpresp"
	"github.com/courtbook/slot-engine/internal/middleware"
	ucAvailability "github.com/courtbook/slot-engine/internal/usecase/availability"
)

// ======================================================
// HANDLER
// ======================================================

type AvailabilityHandler struct {
	getAvailability *ucAvailability.GetAvailability
}

func NewAvailabilityHandler(uc *ucAvailability.GetAvailability) *AvailabilityHandler {
	return &AvailabilityHandler{getAvailability: uc}
}

// ======================================================
// SINGLE RANGE
// ======================================================

func (h *AvailabilityHandler) Availability(c *gin.Context) {
	courtID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var q dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid query parameters.")
		return
	}

	view, err := h.getAvailability.Execute(c.Request.Context(), ucAvailability.GetAvailabilityInput{
		CourtID: courtID,
		Range:   slot.TimeRange{Date: q.Date, Start: q.StartTime, End: q.EndTime},
		UserID:  middleware.UserID(c),
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, view)
}

// ======================================================
// DAY GRID
// ======================================================

func (h *AvailabilityHandler) Slots(c *gin.Context) {
	courtID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var q dto.SlotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid query parameters.")
		return
	}

	views, err := h.getAvailability.DaySlots(c.Request.Context(), ucAvailability.DaySlotsInput{
		CourtID: courtID,
		Date:    q.Date,
		From:    q.From,
		To:      q.To,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.List(c, views)
}
