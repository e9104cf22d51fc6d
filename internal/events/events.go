package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/courtbook/slot-engine/internal/models"
)

type Type string

const (
	WaitlistSlotAvailable Type = "waitlist.slot_available"
	BookingApproved       Type = "booking.approved"
	BookingRejected       Type = "booking.rejected"
)

// Event is the abstract notification handed to the external sender. It
// carries ids and slot data only; rendering and delivery happen elsewhere.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	UserID        uint  `json:"user_id"`
	BookingID     *uint `json:"booking_id,omitempty"`
	EntryID       *uint `json:"waitlist_entry_id,omitempty"`
	TransactionID *uint `json:"transaction_id,omitempty"`

	CourtID   uint    `json:"court_id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Price     float64 `json:"price"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

func SlotAvailable(entry *models.WaitlistEntry, bookingID uint, now time.Time) Event {
	entryID := entry.ID
	return Event{
		ID:         uuid.NewString(),
		Type:       WaitlistSlotAvailable,
		OccurredAt: now,
		UserID:     entry.UserID,
		BookingID:  &bookingID,
		EntryID:    &entryID,
		CourtID:    entry.CourtID,
		Date:       entry.Date,
		StartTime:  entry.StartTime,
		EndTime:    entry.EndTime,
		Price:      entry.Price,
		ExpiresAt:  entry.ExpiresAt,
	}
}

func Approved(b *models.Booking, now time.Time) Event {
	return fromBooking(BookingApproved, b, now)
}

func Rejected(b *models.Booking, reason string, now time.Time) Event {
	ev := fromBooking(BookingRejected, b, now)
	ev.Reason = reason
	return ev
}

func fromBooking(t Type, b *models.Booking, now time.Time) Event {
	bookingID := b.ID
	return Event{
		ID:            uuid.NewString(),
		Type:          t,
		OccurredAt:    now,
		UserID:        b.UserID,
		BookingID:     &bookingID,
		EntryID:       b.WaitlistEntryID,
		TransactionID: b.CartTransactionID,
		CourtID:       b.CourtID,
		Date:          b.Date,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Price:         b.Price,
	}
}
