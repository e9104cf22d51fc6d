package cascade

import (
	"context"
	"fmt"
	"time"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
)

// Meta carries the parts of a transition that are not statuses.
type Meta struct {
	Now     time.Time
	ActorID *uint
	Reason  string

	// checkout only
	PaymentMethod string
	ProofRef      string
}

// SlotRef names one (court, range) released by a cascade.
type SlotRef struct {
	CourtID uint
	Range   slot.TimeRange
}

type Result struct {
	Target        domain.Target
	TransactionID uint
	BookingIDs    []uint
	ItemsUpdated  int64
	Released      []SlotRef
}

// Apply drives a cart transaction, its bookings and its items to target in
// one pass. It is the only place transaction statuses are written; callers
// run it inside their database transaction so all three levels commit or roll
// back together. Children already in a status compatible with target are
// left alone, which makes Apply safe to repeat.
func Apply(
	ctx context.Context,
	repo domain.Repository,
	tx *models.CartTransaction,
	target domain.Target,
	meta Meta,
) (*Result, error) {

	plan, ok := domain.PlanFor(target)
	if !ok {
		return nil, httperr.ErrBusiness("invalid_target")
	}

	// --------------------------------------------------
	// Parent
	// --------------------------------------------------
	tx.Status = plan.TxStatus
	if plan.ApprovalStatus != "" {
		tx.ApprovalStatus = plan.ApprovalStatus
	}

	switch target {
	case domain.TargetCheckedOut:
		tx.PaymentStatus = domain.PaymentPaid
		tx.PaymentMethod = meta.PaymentMethod
		tx.PaymentProofRef = meta.ProofRef
		tx.CheckedOutAt = &meta.Now
	case domain.TargetApproved, domain.TargetRejected:
		tx.ReviewedBy = meta.ActorID
		tx.ReviewedAt = &meta.Now
		tx.RejectionReason = meta.Reason
	case domain.TargetCancelled, domain.TargetExpired:
		tx.RejectionReason = meta.Reason
	}

	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("update transaction %d: %w", tx.ID, err)
	}

	// --------------------------------------------------
	// Bookings
	// --------------------------------------------------
	bookingFields := map[string]any{
		"status":     plan.BookingStatus,
		"updated_at": meta.Now,
	}
	switch target {
	case domain.TargetApproved:
		bookingFields["reviewed_by"] = meta.ActorID
		bookingFields["reviewed_at"] = meta.Now
	case domain.TargetRejected:
		bookingFields["reviewed_by"] = meta.ActorID
		bookingFields["reviewed_at"] = meta.Now
		bookingFields["rejection_reason"] = meta.Reason
	case domain.TargetCancelled, domain.TargetExpired:
		bookingFields["cancelled_at"] = meta.Now
	}

	bookingIDs, err := repo.UpdateBookingsByTransaction(ctx, tx.ID, plan.BookingCompatible, bookingFields)
	if err != nil {
		return nil, fmt.Errorf("cascade bookings of %d: %w", tx.ID, err)
	}

	// --------------------------------------------------
	// Items
	// --------------------------------------------------
	n, err := repo.UpdateItemsByTransaction(ctx, tx.ID, plan.ItemCompatible, map[string]any{
		"status":     plan.ItemStatus,
		"updated_at": meta.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("cascade items of %d: %w", tx.ID, err)
	}

	res := &Result{
		Target:        target,
		TransactionID: tx.ID,
		BookingIDs:    bookingIDs,
		ItemsUpdated:  n,
	}
	if plan.ReleasesSlots {
		res.Released = releasedSlots(tx.Items)
	}
	return res, nil
}

func releasedSlots(items []models.CartItem) []SlotRef {
	seen := make(map[string]bool, len(items))
	out := make([]SlotRef, 0, len(items))
	for i := range items {
		it := &items[i]
		key := fmt.Sprintf("%d|%s", it.CourtID, it.Range().Key())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, SlotRef{CourtID: it.CourtID, Range: it.Range()})
	}
	return out
}

// Drift lists the children of tx that disagree with the target implied by
// its own fields. An open cart has no target and never drifts.
type Drift struct {
	Target     domain.Target
	BookingIDs []uint
	ItemIDs    []uint
	// MissingBookings counts items that should have a booking but do not.
	MissingBookings int
}

func (d Drift) Empty() bool {
	return len(d.BookingIDs) == 0 && len(d.ItemIDs) == 0 && d.MissingBookings == 0
}

func Inspect(tx *models.CartTransaction, bookings []models.Booking) (Drift, bool) {
	target, ok := domain.TargetOf(tx)
	if !ok {
		return Drift{}, false
	}
	plan, _ := domain.PlanFor(target)

	d := Drift{Target: target}
	for _, b := range bookings {
		if !plan.BookingConsistent(b.Status) {
			d.BookingIDs = append(d.BookingIDs, b.ID)
		}
	}
	for _, it := range tx.Items {
		if !plan.ItemConsistent(it.Status) {
			d.ItemIDs = append(d.ItemIDs, it.ID)
		}
	}

	// checked-out and approved transactions own one booking per item
	if tx.ApprovalStatus != domain.ApprovalRejected && tx.Status == domain.TxCompleted {
		d.MissingBookings = missingBookings(tx.Items, bookings)
	}
	return d, true
}

func missingBookings(items []models.CartItem, bookings []models.Booking) int {
	have := make(map[uint]bool, len(bookings))
	for _, b := range bookings {
		if b.CartItemID != nil {
			have[*b.CartItemID] = true
		}
	}
	missing := 0
	for _, it := range items {
		if !have[it.ID] {
			missing++
		}
	}
	return missing
}
