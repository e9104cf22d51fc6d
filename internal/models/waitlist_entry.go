package models

import (
	"time"

	"github.com/courtbook/slot-engine/internal/domain/slot"
)

type WaitlistEntry struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID uint `gorm:"index;not null" json:"user_id"`

	CourtID   uint   `gorm:"index:idx_waitlist_slot,priority:1;not null" json:"court_id"`
	Date      string `gorm:"size:10;index:idx_waitlist_slot,priority:2;not null" json:"date"`
	StartTime string `gorm:"size:5;index:idx_waitlist_slot,priority:3;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`
	Status    string `gorm:"size:20;default:'pending';index:idx_waitlist_slot,priority:4" json:"status"`

	Price    float64 `json:"price"`
	Position int     `gorm:"not null" json:"position"`

	// weak references, cleared once the entry is resolved
	PendingBookingID  *uint `json:"pending_booking_id"`
	PromotedBookingID *uint `json:"promoted_booking_id"`

	NotifiedAt *time.Time `json:"notified_at"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w *WaitlistEntry) Range() slot.TimeRange {
	return slot.TimeRange{Date: w.Date, Start: w.StartTime, End: w.EndTime}
}
