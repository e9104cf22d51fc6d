package booking

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

// ======================================================
// CANCEL
// ======================================================

type CancelBooking struct {
	repo     domain.Repository
	waitlist *waitlist.Manager
	notifier *events.Notifier
	audit    *audit.Dispatcher
	clock    clockwork.Clock
}

func NewCancelBooking(
	repo domain.Repository,
	waitlist *waitlist.Manager,
	notifier *events.Notifier,
	audit *audit.Dispatcher,
	clock clockwork.Clock,
) *CancelBooking {
	return &CancelBooking{
		repo:     repo,
		waitlist: waitlist,
		notifier: notifier,
		audit:    audit,
		clock:    clock,
	}
}

func (uc *CancelBooking) Execute(
	ctx context.Context,
	actorID uint,
	isStaff bool,
	bookingID uint,
) (*models.Booking, error) {

	var (
		out    *models.Booking
		promos []waitlist.Promotion
	)

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		b, err := loadOwned(ctx, r, bookingID, actorID, isStaff)
		if err != nil {
			return err
		}
		if err := r.LockCourts(ctx, b.CourtID); err != nil {
			return err
		}

		prev := b.Status
		now := uc.clock.Now()
		if err := domain.Cancel(b, now); err != nil {
			return err
		}
		ok, err := r.CompareAndSetBooking(ctx, b.ID, prev, "", map[string]any{
			"status":       b.Status,
			"cancelled_at": now,
		})
		if err != nil {
			return err
		}
		if !ok {
			return httperr.ErrBusiness("invalid_state")
		}

		if b.WaitlistEntryID != nil {
			if _, err := r.CompareAndSetWaitlist(ctx, *b.WaitlistEntryID, domain.WaitlistNotified, map[string]any{
				"status":             domain.WaitlistCancelled,
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
		return nil, err
	}

	uc.notifier.Emit(ctx, waitlist.PromotionEvents(promos, uc.clock.Now())...)
	uc.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "booking_cancelled",
		Entity:   "booking",
		EntityID: &out.ID,
	})
	return out, nil
}

// ======================================================
// CHECK IN / COMPLETE
// ======================================================

type Attendance struct {
	repo  domain.Repository
	audit *audit.Dispatcher
	clock clockwork.Clock
}

func NewAttendance(
	repo domain.Repository,
	audit *audit.Dispatcher,
	clock clockwork.Clock,
) *Attendance {
	return &Attendance{repo: repo, audit: audit, clock: clock}
}

func (uc *Attendance) CheckIn(ctx context.Context, staffID, bookingID uint) (*models.Booking, error) {
	return uc.transition(ctx, staffID, bookingID, "booking_checked_in", domain.CheckIn)
}

func (uc *Attendance) Complete(ctx context.Context, staffID, bookingID uint) (*models.Booking, error) {
	return uc.transition(ctx, staffID, bookingID, "booking_completed", domain.Complete)
}

func (uc *Attendance) transition(
	ctx context.Context,
	staffID uint,
	bookingID uint,
	action string,
	apply func(*models.Booking, time.Time) error,
) (*models.Booking, error) {

	var out *models.Booking

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		b, err := r.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := r.LockCourts(ctx, b.CourtID); err != nil {
			return err
		}

		prev := b.Status
		if err := apply(b, uc.clock.Now()); err != nil {
			return err
		}

		// a concurrent cancel between the read and the write must win
		ok, err := r.CompareAndSetBooking(ctx, b.ID, prev, "", map[string]any{
			"status":        b.Status,
			"checked_in_at": b.CheckedInAt,
			"completed_at":  b.CompletedAt,
		})
		if err != nil {
			return err
		}
		if !ok {
			return httperr.ErrBusiness("invalid_state")
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &staffID,
		Action:   action,
		Entity:   "booking",
		EntityID: &out.ID,
	})
	return out, nil
}
