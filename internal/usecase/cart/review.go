package cart

import (
	"context"
	"slices"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/cascade"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type ReviewInput struct {
	StaffID       uint
	TransactionID uint
	Reason        string
}

type ReviewOutput struct {
	TransactionID      uint                 `json:"transaction_id"`
	ApprovalStatus     string               `json:"approval_status"`
	CascadedBookingIDs []uint               `json:"cascaded_booking_ids"`
	WaitlistPromotions []waitlist.Promotion `json:"waitlist_promotions"`
}

// ======================================================
// USE CASE
// ======================================================

// Review approves or rejects a checked-out cart. The transaction, its
// bookings, its items and any waitlist promotion commit together; events go
// out only after that.
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

func (uc *Review) Approve(ctx context.Context, in ReviewInput) (*ReviewOutput, error) {
	return uc.execute(ctx, in, domain.TargetApproved)
}

func (uc *Review) Reject(ctx context.Context, in ReviewInput) (*ReviewOutput, error) {
	if in.Reason == "" {
		in.Reason = "rejected_by_staff"
	}
	return uc.execute(ctx, in, domain.TargetRejected)
}

func (uc *Review) execute(
	ctx context.Context,
	in ReviewInput,
	target domain.Target,
) (*ReviewOutput, error) {

	now := uc.clock.Now()
	out := &ReviewOutput{
		TransactionID:      in.TransactionID,
		CascadedBookingIDs: []uint{},
		WaitlistPromotions: []waitlist.Promotion{},
	}
	var changed []models.Booking

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		tx, err := r.LockTransaction(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if tx.WaitlistEntryID != nil ||
			tx.Status != domain.TxCompleted ||
			tx.ApprovalStatus != domain.ApprovalPending {
			return httperr.ErrBusiness("invalid_state")
		}

		courtIDs := make([]uint, 0, len(tx.Items))
		for _, it := range tx.Items {
			courtIDs = append(courtIDs, it.CourtID)
		}
		if err := r.LockCourts(ctx, courtIDs...); err != nil {
			return err
		}

		if target == domain.TargetApproved {
			if err := assertNoConfirmedOverlap(ctx, r, uc.checker, tx.ID); err != nil {
				return err
			}
		}

		res, err := cascade.Apply(ctx, r, tx, target, cascade.Meta{
			Now:     now,
			ActorID: &in.StaffID,
			Reason:  in.Reason,
		})
		if err != nil {
			return err
		}
		out.ApprovalStatus = tx.ApprovalStatus
		out.CascadedBookingIDs = append(out.CascadedBookingIDs, res.BookingIDs...)

		for _, s := range res.Released {
			promos, err := uc.waitlist.PromoteReleased(ctx, r, s.CourtID, s.Range)
			if err != nil {
				return err
			}
			out.WaitlistPromotions = append(out.WaitlistPromotions, promos...)
		}

		bookings, err := r.ListBookingsByTransaction(ctx, tx.ID)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if slices.Contains(res.BookingIDs, b.ID) {
				changed = append(changed, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// After commit
	// --------------------------------------------------
	evs := make([]events.Event, 0, len(changed)+len(out.WaitlistPromotions))
	for i := range changed {
		if target == domain.TargetApproved {
			evs = append(evs, events.Approved(&changed[i], now))
		} else {
			evs = append(evs, events.Rejected(&changed[i], in.Reason, now))
		}
	}
	evs = append(evs, waitlist.PromotionEvents(out.WaitlistPromotions, now)...)
	uc.notifier.Emit(ctx, evs...)

	log.Ctx(ctx).Info().
		Uint("transaction_id", in.TransactionID).
		Str("target", string(target)).
		Int("bookings", len(out.CascadedBookingIDs)).
		Int("promotions", len(out.WaitlistPromotions)).
		Msg("cart reviewed")

	uc.audit.Dispatch(audit.Event{
		ActorID:  &in.StaffID,
		Action:   "cart_" + string(target),
		Entity:   "cart_transaction",
		EntityID: &out.TransactionID,
		Metadata: map[string]any{
			"booking_ids": out.CascadedBookingIDs,
			"reason":      in.Reason,
		},
	})

	return out, nil
}

// assertNoConfirmedOverlap refuses to confirm a booking over one that is
// already confirmed, so approvals cannot double-book a court.
func assertNoConfirmedOverlap(
	ctx context.Context,
	r domain.Repository,
	checker *availability.Checker,
	txID uint,
) error {

	bookings, err := r.ListBookingsByTransaction(ctx, txID)
	if err != nil {
		return err
	}
	for _, b := range bookings {
		if b.Status != string(domain.StatusPending) {
			continue
		}
		taken, blocking, err := checker.ConfirmedOverlap(ctx, r, b.CourtID, b.Range(), availability.Exclusion{TransactionID: txID})
		if err != nil {
			return err
		}
		if taken {
			return httperr.ErrConflict(blocking)
		}
	}
	return nil
}
