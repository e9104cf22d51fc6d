package booking

import (
	"slices"

	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
)

// ===============================
// Booking Status
// ===============================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
)

const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// ===============================
// Cart Status
// ===============================

const (
	TxPending   = "pending"
	TxCompleted = "completed"
	TxCancelled = "cancelled"

	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"

	ItemPending   = "pending"
	ItemCompleted = "completed"
	ItemApproved  = "approved"
	ItemRejected  = "rejected"
	ItemCancelled = "cancelled"
)

// ===============================
// Waitlist Status
// ===============================

const (
	WaitlistPending   = "pending"
	WaitlistNotified  = "notified"
	WaitlistConverted = "converted"
	WaitlistExpired   = "expired"
	WaitlistCancelled = "cancelled"
)

// ActiveWaitlistStatuses are the statuses that take part in queue positions.
var ActiveWaitlistStatuses = []string{WaitlistPending, WaitlistNotified}

// ConfirmedStatuses always block a slot.
var ConfirmedStatuses = []string{
	string(StatusApproved),
	string(StatusCheckedIn),
	string(StatusCompleted),
}

// ===============================
// Validations
// ===============================

func CanApprove(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanReject(current Status) error {
	if current != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanCancel(current Status) error {
	if current != StatusPending && current != StatusApproved {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanCheckIn(current Status) error {
	if current != StatusApproved {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

func CanComplete(current Status) error {
	if current != StatusCheckedIn {
		return httperr.ErrBusiness("invalid_state")
	}
	return nil
}

// ===============================
// Availability view
// ===============================

// HoldOf reads a booking the way the availability rule needs it.
func HoldOf(b *models.Booking) slot.Hold {
	id := b.ID
	h := slot.Hold{
		BookingID: &id,
		Range:     b.Range(),
		ByStaff:   b.CreatedByStaff,
		Since:     b.CreatedAt,
	}

	switch {
	case slices.Contains(ConfirmedStatuses, b.Status):
		h.State = slot.HoldConfirmed
	case b.Status == string(StatusPending) && b.PaymentStatus == PaymentPaid:
		h.State = slot.HoldAwaitingApproval
	default:
		h.State = slot.HoldInactive
	}
	return h
}

// HoldOfItem reads a cart item using its parent transaction for payment
// state. bookingID is the booking materialized from the item, if any.
func HoldOfItem(it *models.CartItem, tx *models.CartTransaction, bookingID *uint) slot.Hold {
	h := slot.Hold{
		BookingID: bookingID,
		Range:     it.Range(),
		Since:     it.CreatedAt,
	}
	if tx != nil {
		h.ByStaff = tx.CreatedByStaff
		if tx.CheckedOutAt != nil {
			h.Since = *tx.CheckedOutAt
		}
	}

	switch it.Status {
	case ItemApproved:
		h.State = slot.HoldConfirmed
	case ItemCompleted:
		if tx != nil && tx.PaymentStatus == PaymentPaid {
			h.State = slot.HoldAwaitingApproval
		}
	}
	return h
}
