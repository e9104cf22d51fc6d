package booking

import (
	"slices"

	"github.com/courtbook/slot-engine/internal/models"
)

// Target is the state a cart transaction is driven to; the cascade applies
// the matching statuses to the transaction, its bookings and its items.
type Target string

const (
	TargetCheckedOut Target = "checked_out"
	TargetApproved   Target = "approved"
	TargetRejected   Target = "rejected"
	TargetCancelled  Target = "cancelled"
	TargetExpired    Target = "expired"
)

type CascadePlan struct {
	TxStatus       string
	ApprovalStatus string // empty keeps the current value

	BookingStatus string
	ItemStatus    string

	// children already in one of these statuses are left untouched
	BookingCompatible []string
	ItemCompatible    []string

	// ReleasesSlots marks targets after which waitlists must be advanced
	ReleasesSlots bool
}

var plans = map[Target]CascadePlan{
	TargetCheckedOut: {
		TxStatus:          TxCompleted,
		ApprovalStatus:    ApprovalPending,
		BookingStatus:     string(StatusPending),
		ItemStatus:        ItemCompleted,
		BookingCompatible: []string{string(StatusPending), string(StatusCancelled)},
		ItemCompatible:    []string{ItemCompleted},
	},
	TargetApproved: {
		TxStatus:       TxCompleted,
		ApprovalStatus: ApprovalApproved,
		BookingStatus:  string(StatusApproved),
		ItemStatus:     ItemApproved,
		BookingCompatible: []string{
			string(StatusApproved), string(StatusCheckedIn),
			string(StatusCompleted), string(StatusCancelled),
		},
		ItemCompatible: []string{ItemApproved},
	},
	TargetRejected: {
		TxStatus:          TxCompleted,
		ApprovalStatus:    ApprovalRejected,
		BookingStatus:     string(StatusRejected),
		ItemStatus:        ItemRejected,
		BookingCompatible: []string{string(StatusRejected), string(StatusCancelled)},
		ItemCompatible:    []string{ItemRejected},
		ReleasesSlots:     true,
	},
	TargetCancelled: {
		TxStatus:          TxCancelled,
		BookingStatus:     string(StatusCancelled),
		ItemStatus:        ItemCancelled,
		BookingCompatible: []string{string(StatusCancelled), string(StatusRejected)},
		ItemCompatible:    []string{ItemCancelled},
		ReleasesSlots:     true,
	},
	TargetExpired: {
		TxStatus:          TxCancelled,
		ApprovalStatus:    ApprovalRejected,
		BookingStatus:     string(StatusCancelled),
		ItemStatus:        ItemCancelled,
		BookingCompatible: []string{string(StatusCancelled), string(StatusRejected)},
		ItemCompatible:    []string{ItemCancelled},
		ReleasesSlots:     true,
	},
}

func PlanFor(t Target) (CascadePlan, bool) {
	p, ok := plans[t]
	return p, ok
}

// TargetOf derives the target implied by a transaction's own fields. Open
// carts (still pending) have no target.
func TargetOf(tx *models.CartTransaction) (Target, bool) {
	switch {
	case tx.Status == TxCancelled:
		return TargetCancelled, true
	case tx.ApprovalStatus == ApprovalApproved:
		return TargetApproved, true
	case tx.ApprovalStatus == ApprovalRejected:
		return TargetRejected, true
	case tx.Status == TxCompleted:
		return TargetCheckedOut, true
	}
	return "", false
}

func (p CascadePlan) BookingConsistent(status string) bool {
	return slices.Contains(p.BookingCompatible, status)
}

func (p CascadePlan) ItemConsistent(status string) bool {
	return slices.Contains(p.ItemCompatible, status)
}
