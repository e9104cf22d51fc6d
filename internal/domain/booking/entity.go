package booking

import (
	"time"

	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
)

// ===============================
// Domain Actions
// ===============================

func Approve(b *models.Booking, staffID uint, now time.Time) error {
	if err := CanApprove(Status(b.Status)); err != nil {
		return err
	}

	b.Status = string(StatusApproved)
	b.ReviewedBy = &staffID
	b.ReviewedAt = &now
	return nil
}

func Reject(b *models.Booking, staffID uint, reason string, now time.Time) error {
	if err := CanReject(Status(b.Status)); err != nil {
		return err
	}

	b.Status = string(StatusRejected)
	b.ReviewedBy = &staffID
	b.ReviewedAt = &now
	b.RejectionReason = reason
	return nil
}

func Cancel(b *models.Booking, now time.Time) error {
	if err := CanCancel(Status(b.Status)); err != nil {
		return err
	}

	b.Status = string(StatusCancelled)
	b.CancelledAt = &now
	return nil
}

func CheckIn(b *models.Booking, now time.Time) error {
	if err := CanCheckIn(Status(b.Status)); err != nil {
		return err
	}

	b.Status = string(StatusCheckedIn)
	b.CheckedInAt = &now
	return nil
}

func Complete(b *models.Booking, now time.Time) error {
	if err := CanComplete(Status(b.Status)); err != nil {
		return err
	}

	b.Status = string(StatusCompleted)
	b.CompletedAt = &now
	return nil
}

// MarkPaid attaches a payment proof to a pending booking.
func MarkPaid(b *models.Booking, method, proofRef string, now time.Time) error {
	if Status(b.Status) != StatusPending {
		return httperr.ErrBusiness("invalid_state")
	}

	b.PaymentStatus = PaymentPaid
	b.PaymentMethod = method
	b.PaymentProofRef = proofRef
	b.PaidAt = &now
	return nil
}
