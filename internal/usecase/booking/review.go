package booking

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

// Review approves or rejects a standalone booking. Bookings owned by a cart
// transaction are reviewed through the cart so the cascade stays whole.
type Review struct {
	repo     domain.Repository
	checker  *availability.Checker
	waitlist *waitlist.Manager
	notifier *events.Notifier
	audit    *audit.Dispatcher
	clock    clockwork.Clock
}

func NewReview(
	repo domain.Repository,
	checker *availability.Checker,
	waitlist *waitlist.Manager,
	notifier *events.Notifier,
	audit *audit.Dispatcher,
	clock clockwork.Clock,
) *Review {
	return &Review{
		repo:     repo,
		checker:  checker,
		waitlist: waitlist,
		notifier: notifier,
		audit:    audit,
		clock:    clock,
	}
}

// ======================================================
// APPROVE
// ======================================================

func (uc *Review) Approve(
	ctx context.Context,
	staffID uint,
	bookingID uint,
) (*models.Booking, error) {

	var out *models.Booking

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		b, err := r.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.CartTransactionID != nil {
			return httperr.ErrBusiness("booking_managed_by_cart")
		}
		if err := r.LockCourts(ctx, b.CourtID); err != nil {
			return err
		}
		if err := domain.CanApprove(domain.Status(b.Status)); err != nil {
			return err
		}
		if b.PaymentStatus != domain.PaymentPaid {
			return httperr.ErrBusiness("payment_required")
		}

		taken, blocking, err := uc.checker.ConfirmedOverlap(ctx, r, b.CourtID, b.Range(), availability.Exclusion{BookingID: b.ID})
		if err != nil {
			return err
		}
		if taken {
			return httperr.ErrConflict(blocking)
		}

		now := uc.clock.Now()
		if err := domain.Approve(b, staffID, now); err != nil {
			return err
		}
		ok, err := r.CompareAndSetBooking(ctx, b.ID, string(domain.StatusPending), domain.PaymentPaid, map[string]any{
			"status":      b.Status,
			"reviewed_by": staffID,
			"reviewed_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return httperr.ErrBusiness("invalid_state")
		}

		if b.WaitlistEntryID != nil {
			if _, err := uc.waitlist.ConvertOnApproval(ctx, r, *b.WaitlistEntryID); err != nil {
				return err
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, events.Approved(out, uc.clock.Now()))
	uc.audit.Dispatch(audit.Event{
		ActorID:  &staffID,
		Action:   "booking_approved",
		Entity:   "booking",
		EntityID: &out.ID,
	})
	return out, nil
}

// ======================================================
// REJECT
// ======================================================

func (uc *Review) Reject(
	ctx context.Context,
	staffID uint,
	bookingID uint,
	reason string,
) (*models.Booking, []waitlist.Promotion, error) {

	if reason == "" {
		reason = "rejected_by_staff"
	}

	var (
		out    *models.Booking
		promos []waitlist.Promotion
	)

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		b, err := r.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.CartTransactionID != nil {
			return httperr.ErrBusiness("booking_managed_by_cart")
		}
		if err := r.LockCourts(ctx, b.CourtID); err != nil {
			return err
		}

		now := uc.clock.Now()
		if err := domain.Reject(b, staffID, reason, now); err != nil {
			return err
		}
		ok, err := r.CompareAndSetBooking(ctx, b.ID, string(domain.StatusPending), "", map[string]any{
			"status":           b.Status,
			"reviewed_by":      staffID,
			"reviewed_at":      now,
			"rejection_reason": reason,
		})
		if err != nil {
			return err
		}
		if !ok {
			return httperr.ErrBusiness("invalid_state")
		}

		// the promoted user lost the claim; the entry ends like an expiry
		if b.WaitlistEntryID != nil {
			if _, err := r.CompareAndSetWaitlist(ctx, *b.WaitlistEntryID, domain.WaitlistNotified, map[string]any{
				"status":             domain.WaitlistExpired,
				"pending_booking_id": nil,
			}); err != nil {
				return err
			}
		}

		promos, err = uc.waitlist.PromoteReleased(ctx, r, b.CourtID, b.Range())
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	now := uc.clock.Now()
	evs := []events.Event{events.Rejected(out, reason, now)}
	evs = append(evs, waitlist.PromotionEvents(promos, now)...)
	uc.notifier.Emit(ctx, evs...)

	uc.audit.Dispatch(audit.Event{
		ActorID:  &staffID,
		Action:   "booking_rejected",
		Entity:   "booking",
		EntityID: &out.ID,
		Metadata: map[string]string{"reason": reason},
	})
	return out, promos, nil
}
