package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtbook/slot-engine/internal/audit"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/dto"
	"github.com/courtbook/slot-engine/internal/httperr"
)

// ======================================================
// HANDLER
// ======================================================

type AuditLogsHandler struct {
	logger *audit.Logger
}

func NewAuditLogsHandler(logger *audit.Logger) *AuditLogsHandler {
	return &AuditLogsHandler{logger: logger}
}

func (h *AuditLogsHandler) List(c *gin.Context) {
	filter := audit.Filter{
		Action: c.Query("action"),
		Entity: c.Query("entity"),
	}

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if filter.Page <= 0 {
		filter.Page = 1
	}

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	// --------------------------------------------------
	// Optional date window (inclusive days)
	// --------------------------------------------------

	if fromStr := c.Query("from"); fromStr != "" {
		if from, err := time.Parse(slot.DateLayout, fromStr); err == nil {
			filter.From = &from
		}
	}

	if toStr := c.Query("to"); toStr != "" {
		if to, err := time.Parse(slot.DateLayout, toStr); err == nil {
			end := to.Add(24 * time.Hour)
			filter.To = &end
		}
	}

	rows, total, err := h.logger.List(c.Request.Context(), filter)
	if err != nil {
		httperr.Internal(c, "audit_list_failed", "Failed to list audit logs.")
		return
	}

	logs := make([]dto.AuditLogDTO, 0, len(rows))
	for _, row := range rows {
		item := dto.AuditLogDTO{
			ID:        row.ID,
			ActorID:   row.ActorID,
			Action:    row.Action,
			Entity:    row.Entity,
			EntityID:  row.EntityID,
			CreatedAt: row.CreatedAt,
		}
		if row.Metadata != "" && json.Valid([]byte(row.Metadata)) {
			item.Metadata = json.RawMessage(row.Metadata)
		}
		logs = append(logs, item)
	}

	c.JSON(200, dto.AuditLogPage{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Logs:  logs,
	})
}
