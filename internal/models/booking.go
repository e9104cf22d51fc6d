package models

import (
	"time"

	"github.com/courtbook/slot-engine/internal/domain/slot"
)

type Booking struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CourtID uint `gorm:"index:idx_bookings_slot,priority:1;not null" json:"court_id"`

	UserID         uint `gorm:"index;not null" json:"user_id"`
	CreatedByStaff bool `gorm:"default:false" json:"created_by_staff"`

	Date      string `gorm:"size:10;index:idx_bookings_slot,priority:2;not null" json:"date"`
	StartTime string `gorm:"size:5;index:idx_bookings_slot,priority:3;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`

	Price float64 `json:"price"`

	Status          string `gorm:"size:20;default:'pending';index" json:"status"`
	PaymentStatus   string `gorm:"size:20;default:'unpaid'" json:"payment_status"`
	PaymentMethod   string `gorm:"size:30" json:"payment_method"`
	PaymentProofRef string `gorm:"size:255" json:"payment_proof_ref"`

	CartTransactionID *uint `gorm:"index" json:"cart_transaction_id"`
	CartItemID        *uint `json:"cart_item_id"`
	WaitlistEntryID   *uint `gorm:"index" json:"waitlist_entry_id"`

	ReviewedBy      *uint      `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason string     `gorm:"size:255" json:"rejection_reason"`

	PaidAt      *time.Time `json:"paid_at"`
	CheckedInAt *time.Time `json:"checked_in_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) Range() slot.TimeRange {
	return slot.TimeRange{Date: b.Date, Start: b.StartTime, End: b.EndTime}
}
