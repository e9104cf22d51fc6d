package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/httpresp"
	"github.com/courtbook/slot-engine/internal/middleware"
	ucWaitlist "github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

type WaitlistHandler struct {
	list   *ucWaitlist.ListEntries
	cancel *ucWaitlist.CancelEntry
}

func NewWaitlistHandler(
	list *ucWaitlist.ListEntries,
	cancel *ucWaitlist.CancelEntry,
) *WaitlistHandler {
	return &WaitlistHandler{list: list, cancel: cancel}
}

func (h *WaitlistHandler) List(c *gin.Context) {
	entries, err := h.list.Execute(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.List(c, entries)
}

func (h *WaitlistHandler) Cancel(c *gin.Context) {
	entryID, ok := idParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.cancel.Execute(
		c.Request.Context(),
		middleware.UserID(c),
		middleware.IsStaff(c),
		entryID,
	)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, entry)
}
