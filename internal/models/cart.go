package models

import (
	"time"

	"github.com/courtbook/slot-engine/internal/domain/slot"
)

// CartTransaction is one payment action covering one or more cart items.
type CartTransaction struct {
	ID uint `gorm:"primaryKey" json:"id"`

	UserID         uint `gorm:"index;not null" json:"user_id"`
	CreatedByStaff bool `gorm:"default:false" json:"created_by_staff"`

	TotalPrice float64 `json:"total_price"`

	Status         string `gorm:"size:20;default:'pending';index" json:"status"`
	ApprovalStatus string `gorm:"size:20;default:'pending'" json:"approval_status"`
	PaymentStatus  string `gorm:"size:20;default:'unpaid'" json:"payment_status"`

	PaymentMethod   string `gorm:"size:30" json:"payment_method"`
	PaymentProofRef string `gorm:"size:255" json:"payment_proof_ref"`

	ReviewedBy      *uint      `json:"reviewed_by"`
	ReviewedAt      *time.Time `json:"reviewed_at"`
	RejectionReason string     `gorm:"size:255" json:"rejection_reason"`
	CheckedOutAt    *time.Time `json:"checked_out_at"`

	// set only on the hold transaction created for a waitlisted item
	WaitlistEntryID *uint `gorm:"index" json:"waitlist_entry_id"`

	Items []CartItem `gorm:"foreignKey:CartTransactionID" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

type CartItem struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CartTransactionID uint `gorm:"index;not null" json:"cart_transaction_id"`
	UserID            uint `gorm:"not null" json:"user_id"`

	CourtID uint `gorm:"index:idx_cart_items_slot,priority:1;not null" json:"court_id"`

	Date      string `gorm:"size:10;index:idx_cart_items_slot,priority:2;not null" json:"date"`
	StartTime string `gorm:"size:5;index:idx_cart_items_slot,priority:3;not null" json:"start_time"`
	EndTime   string `gorm:"size:5;not null" json:"end_time"`

	Price  float64 `json:"price"`
	Status string  `gorm:"size:20;default:'pending'" json:"status"`

	WaitlistEntryID *uint `json:"waitlist_entry_id"`

	Transaction *CartTransaction `gorm:"foreignKey:CartTransactionID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *CartItem) Range() slot.TimeRange {
	return slot.TimeRange{Date: i.Date, Start: i.StartTime, End: i.EndTime}
}
