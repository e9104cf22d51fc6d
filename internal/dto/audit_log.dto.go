package dto

import (
	"encoding/json"
	"time"
)

type AuditLogDTO struct {
	ID        uint            `json:"id"`
	ActorID   *uint           `json:"actor_id"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  *uint           `json:"entity_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type AuditLogPage struct {
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Total int64         `json:"total"`
	Logs  []AuditLogDTO `json:"logs"`
}
