package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/infra/proofstore"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/cascade"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type CheckoutInput struct {
	ActorID       uint
	IsStaff       bool
	TransactionID uint
	PaymentMethod string
	ProofRef      string
}

type CheckoutOutput struct {
	TransactionID uint   `json:"transaction_id"`
	BookingIDs    []uint `json:"booking_ids"`
}

// ======================================================
// USE CASE
// ======================================================

type Checkout struct {
	repo    domain.Repository
	checker *availability.Checker
	proofs  proofstore.Checker
	audit   *audit.Dispatcher
	clock   clockwork.Clock
}

func NewCheckout(
	repo domain.Repository,
	checker *availability.Checker,
	proofs proofstore.Checker,
	audit *audit.Dispatcher,
	clock clockwork.Clock,
) *Checkout {
	return &Checkout{
		repo:    repo,
		checker: checker,
		proofs:  proofs,
		audit:   audit,
		clock:   clock,
	}
}

// ======================================================
// EXECUTE
// ======================================================

// Execute turns a pending cart into paid bookings. Bookings are written
// before the transaction status changes; if any item is blocked the whole
// attempt rolls back and the caller gets every stale item.
func (uc *Checkout) Execute(
	ctx context.Context,
	in CheckoutInput,
) (*CheckoutOutput, error) {

	// --------------------------------------------------
	// 1️⃣ Payment proof
	// --------------------------------------------------
	in.ProofRef = strings.TrimSpace(in.ProofRef)
	if in.ProofRef == "" && !in.IsStaff {
		return nil, httperr.ErrBusiness("payment_proof_required")
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = "transfer"
	}
	if err := checkProof(ctx, uc.proofs, in.ProofRef); err != nil {
		return nil, err
	}

	out := &CheckoutOutput{TransactionID: in.TransactionID}
	now := uc.clock.Now()

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {

		// --------------------------------------------------
		// 2️⃣ Cart under lock
		// --------------------------------------------------
		tx, err := r.LockTransaction(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if tx.UserID != in.ActorID && !in.IsStaff {
			return httperr.ErrBusiness("transaction_not_found")
		}
		if tx.WaitlistEntryID != nil || tx.Status != domain.TxPending {
			return httperr.ErrBusiness("invalid_state")
		}
		if len(tx.Items) == 0 {
			return httperr.ErrBusiness("empty_cart")
		}

		courtIDs := make([]uint, 0, len(tx.Items))
		for _, it := range tx.Items {
			courtIDs = append(courtIDs, it.CourtID)
		}
		if err := r.LockCourts(ctx, courtIDs...); err != nil {
			return err
		}

		// --------------------------------------------------
		// 3️⃣ Re-validate and create bookings
		// --------------------------------------------------
		var stale []httperr.StaleItem
		ex := availability.Exclusion{TransactionID: tx.ID, UserID: tx.UserID}

		for i := range tx.Items {
			it := &tx.Items[i]

			cl, err := uc.checker.Classify(ctx, r, it.CourtID, it.Range(), ex)
			if err != nil {
				return err
			}
			if cl.Outcome == slot.Blocked {
				stale = append(stale, httperr.StaleItem{
					CartItemID: it.ID,
					CourtID:    it.CourtID,
					Date:       it.Date,
					StartTime:  it.StartTime,
					EndTime:    it.EndTime,
				})
				continue
			}

			txID, itemID := tx.ID, it.ID
			b := &models.Booking{
				CourtID:           it.CourtID,
				UserID:            tx.UserID,
				CreatedByStaff:    tx.CreatedByStaff,
				Date:              it.Date,
				StartTime:         it.StartTime,
				EndTime:           it.EndTime,
				Price:             it.Price,
				Status:            string(domain.StatusPending),
				PaymentStatus:     domain.PaymentPaid,
				PaymentMethod:     in.PaymentMethod,
				PaymentProofRef:   in.ProofRef,
				CartTransactionID: &txID,
				CartItemID:        &itemID,
				PaidAt:            &now,
			}
			if err := r.CreateBooking(ctx, b); err != nil {
				return fmt.Errorf("create booking for item %d: %w", it.ID, err)
			}
			out.BookingIDs = append(out.BookingIDs, b.ID)
		}

		if len(stale) > 0 {
			return httperr.StaleStateError{Items: stale}
		}

		// --------------------------------------------------
		// 4️⃣ Status flip, only once every booking exists
		// --------------------------------------------------
		_, err = cascade.Apply(ctx, r, tx, domain.TargetCheckedOut, cascade.Meta{
			Now:           now,
			ActorID:       &in.ActorID,
			PaymentMethod: in.PaymentMethod,
			ProofRef:      in.ProofRef,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Uint("transaction_id", out.TransactionID).
		Int("bookings", len(out.BookingIDs)).
		Msg("cart checked out")

	uc.audit.Dispatch(audit.Event{
		ActorID:  &in.ActorID,
		Action:   "cart_checked_out",
		Entity:   "cart_transaction",
		EntityID: &out.TransactionID,
		Metadata: map[string]any{"booking_ids": out.BookingIDs},
	})

	return out, nil
}

func checkProof(ctx context.Context, proofs proofstore.Checker, ref string) error {
	if ref == "" || proofs == nil {
		return nil
	}
	ok, err := proofs.Exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return httperr.ErrBusiness("payment_proof_not_found")
	}
	return nil
}
