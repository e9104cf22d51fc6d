package booking

import (
	"context"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/infra/proofstore"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

type PayInput struct {
	ActorID       uint
	IsStaff       bool
	BookingID     uint
	PaymentMethod string
	ProofRef      string
}

// PayBooking attaches payment to a booking created by a waitlist promotion.
// A payment that arrives after the entry's deadline expires the entry,
// promotes the next user and fails with DeadlineExpiredError.
type PayBooking struct {
	repo     domain.Repository
	waitlist *waitlist.Manager
	proofs   proofstore.Checker
	notifier *events.Notifier
	audit    *audit.Dispatcher
	clock    clockwork.Clock
}

func NewPayBooking(
	repo domain.Repository,
	waitlist *waitlist.Manager,
	proofs proofstore.Checker,
	notifier *events.Notifier,
	audit *audit.Dispatcher,
	clock clockwork.Clock,
) *PayBooking {
	return &PayBooking{
		repo:     repo,
		waitlist: waitlist,
		proofs:   proofs,
		notifier: notifier,
		audit:    audit,
		clock:    clock,
	}
}

func (uc *PayBooking) Execute(
	ctx context.Context,
	in PayInput,
) (*models.Booking, error) {

	in.ProofRef = strings.TrimSpace(in.ProofRef)
	if in.ProofRef == "" && !in.IsStaff {
		return nil, httperr.ErrBusiness("payment_proof_required")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "transfer"
	}
	if in.ProofRef != "" && uc.proofs != nil {
		ok, err := uc.proofs.Exists(ctx, in.ProofRef)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, httperr.ErrBusiness("payment_proof_not_found")
		}
	}

	var (
		out      *models.Booking
		promos   []waitlist.Promotion
		deadline error
	)

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		b, err := loadOwned(ctx, r, in.BookingID, in.ActorID, in.IsStaff)
		if err != nil {
			return err
		}
		if b.CartTransactionID != nil {
			return httperr.ErrBusiness("booking_managed_by_cart")
		}
		if err := r.LockCourts(ctx, b.CourtID); err != nil {
			return err
		}

		if b.WaitlistEntryID != nil {
			entry, err := r.GetWaitlistEntry(ctx, *b.WaitlistEntryID)
			if err != nil {
				return err
			}
			if entry.Status != domain.WaitlistNotified {
				deadline = httperr.DeadlineExpiredError{EntryID: entry.ID}
				return nil
			}
			if entry.ExpiresAt != nil && uc.clock.Now().After(*entry.ExpiresAt) {
				// commit the expiration, then report the late payment
				_, promos, err = uc.waitlist.ExpireIfOverdue(ctx, r, entry.ID)
				if err != nil {
					return err
				}
				deadline = httperr.DeadlineExpiredError{EntryID: entry.ID}
				return nil
			}
		}

		now := uc.clock.Now()
		ok, err := r.CompareAndSetBooking(ctx, b.ID,
			string(domain.StatusPending), domain.PaymentUnpaid,
			map[string]any{
				"payment_status":    domain.PaymentPaid,
				"payment_method":    in.PaymentMethod,
				"payment_proof_ref": in.ProofRef,
				"paid_at":           now,
			})
		if err != nil {
			return err
		}
		if !ok {
			return httperr.ErrBusiness("invalid_state")
		}

		out, err = r.GetBooking(ctx, b.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, waitlist.PromotionEvents(promos, uc.clock.Now())...)
	if deadline != nil {
		return nil, deadline
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &in.ActorID,
		Action:   "booking_paid",
		Entity:   "booking",
		EntityID: &out.ID,
	})
	return out, nil
}

func loadOwned(
	ctx context.Context,
	r domain.Repository,
	bookingID uint,
	actorID uint,
	isStaff bool,
) (*models.Booking, error) {

	b, err := r.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != actorID && !isStaff {
		return nil, httperr.ErrBusiness("booking_not_found")
	}
	return b, nil
}
