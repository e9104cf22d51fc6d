package cart

import (
	"context"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/infra/proofstore"
	"github.com/courtbook/slot-engine/internal/models"
)

// ======================================================
// GET CART
// ======================================================

type GetCart struct {
	repo domain.Repository
}

func NewGetCart(repo domain.Repository) *GetCart {
	return &GetCart{repo: repo}
}

// Execute returns the user's open cart, or nil when there is none.
func (uc *GetCart) Execute(ctx context.Context, userID uint) (*models.CartTransaction, error) {
	return uc.repo.FindPendingTransaction(ctx, userID)
}

// ======================================================
// REMOVE ITEM
// ======================================================

type RemoveItem struct {
	repo  domain.Repository
	audit *audit.Dispatcher
}

func NewRemoveItem(repo domain.Repository, audit *audit.Dispatcher) *RemoveItem {
	return &RemoveItem{repo: repo, audit: audit}
}

func (uc *RemoveItem) Execute(
	ctx context.Context,
	userID uint,
	itemID uint,
) (*models.CartTransaction, error) {

	var cart *models.CartTransaction

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		pending, err := r.FindPendingTransaction(ctx, userID)
		if err != nil {
			return err
		}
		if pending == nil {
			return httperr.ErrBusiness("cart_item_not_found")
		}

		tx, err := r.LockTransaction(ctx, pending.ID)
		if err != nil {
			return err
		}

		idx := -1
		for i, it := range tx.Items {
			if it.ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return httperr.ErrBusiness("cart_item_not_found")
		}

		if err := r.DeleteCartItem(ctx, itemID); err != nil {
			return err
		}
		tx.Items = append(tx.Items[:idx], tx.Items[idx+1:]...)

		tx.TotalPrice = 0
		for _, it := range tx.Items {
			tx.TotalPrice += it.Price
		}
		if err := r.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
		cart = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &userID,
		Action:   "cart_item_removed",
		Entity:   "cart_item",
		EntityID: &itemID,
	})
	return cart, nil
}

// ======================================================
// ATTACH PROOF
// ======================================================

type AttachProofInput struct {
	ActorID       uint
	IsStaff       bool
	TransactionID uint
	PaymentMethod string
	ProofRef      string
}

// AttachProof replaces the payment proof of a checked-out cart that staff
// has not reviewed yet. Pending bookings of the cart get the same proof.
type AttachProof struct {
	repo   domain.Repository
	proofs proofstore.Checker
	audit  *audit.Dispatcher
}

func NewAttachProof(
	repo domain.Repository,
	proofs proofstore.Checker,
	audit *audit.Dispatcher,
) *AttachProof {
	return &AttachProof{repo: repo, proofs: proofs, audit: audit}
}

func (uc *AttachProof) Execute(
	ctx context.Context,
	in AttachProofInput,
) (*models.CartTransaction, error) {

	if in.ProofRef == "" {
		return nil, httperr.ErrBusiness("payment_proof_required")
	}
	if err := checkProof(ctx, uc.proofs, in.ProofRef); err != nil {
		return nil, err
	}

	var out *models.CartTransaction

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		tx, err := r.LockTransaction(ctx, in.TransactionID)
		if err != nil {
			return err
		}
		if tx.UserID != in.ActorID && !in.IsStaff {
			return httperr.ErrBusiness("transaction_not_found")
		}
		if tx.Status != domain.TxCompleted || tx.ApprovalStatus != domain.ApprovalPending {
			return httperr.ErrBusiness("invalid_state")
		}

		tx.PaymentProofRef = in.ProofRef
		if in.PaymentMethod != "" {
			tx.PaymentMethod = in.PaymentMethod
		}
		if err := r.UpdateTransaction(ctx, tx); err != nil {
			return err
		}

		if _, err := r.UpdateBookingsByTransaction(ctx, tx.ID, nonPendingBookingStatuses, map[string]any{
			"payment_proof_ref": tx.PaymentProofRef,
			"payment_method":    tx.PaymentMethod,
		}); err != nil {
			return err
		}
		out = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.audit.Dispatch(audit.Event{
		ActorID:  &in.ActorID,
		Action:   "cart_proof_attached",
		Entity:   "cart_transaction",
		EntityID: &out.ID,
	})
	return out, nil
}

var nonPendingBookingStatuses = []string{
	string(domain.StatusApproved),
	string(domain.StatusRejected),
	string(domain.StatusCancelled),
	string(domain.StatusCheckedIn),
	string(domain.StatusCompleted),
}
