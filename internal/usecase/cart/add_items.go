package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

const (
	OutcomeAdded      = "added"
	OutcomeWaitlisted = "waitlisted"
	OutcomeRejected   = "rejected"
)

type ItemInput struct {
	CourtID   uint    `json:"court_id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Price     float64 `json:"price"`
}

func (i ItemInput) Range() slot.TimeRange {
	return slot.TimeRange{Date: i.Date, Start: i.StartTime, End: i.EndTime}
}

type AddItemsInput struct {
	UserID  uint
	IsStaff bool
	Items   []ItemInput
}

type ItemResult struct {
	Index   int       `json:"index"`
	Outcome string    `json:"outcome"`
	Item    ItemInput `json:"item"`

	CartItemID        *uint  `json:"cart_item_id,omitempty"`
	TransactionID     *uint  `json:"transaction_id,omitempty"`
	WaitlistEntryID   *uint  `json:"waitlist_entry_id,omitempty"`
	Position          int    `json:"position,omitempty"`
	BlockingBookingID *uint  `json:"blocking_booking_id,omitempty"`
	ErrorCode         string `json:"error_code,omitempty"`
}

type AddItemsOutput struct {
	TransactionID *uint        `json:"transaction_id"`
	Added         []ItemResult `json:"added"`
	Waitlisted    []ItemResult `json:"waitlisted"`
	Rejected      []ItemResult `json:"rejected"`
}

// ======================================================
// USE CASE
// ======================================================

// AddItems resolves every requested item on its own: one database transaction
// and one court lock per item, so a conflict on one item never undoes the
// others.
type AddItems struct {
	repo     domain.Repository
	checker  *availability.Checker
	waitlist *waitlist.Manager
	audit    *audit.Dispatcher
	clock    clockwork.Clock
	loc      *time.Location
}

func NewAddItems(
	repo domain.Repository,
	checker *availability.Checker,
	waitlist *waitlist.Manager,
	audit *audit.Dispatcher,
	clock clockwork.Clock,
) *AddItems {
	return &AddItems{
		repo:     repo,
		checker:  checker,
		waitlist: waitlist,
		audit:    audit,
		clock:    clock,
		loc:      waitlist.Location(),
	}
}

// ======================================================
// EXECUTE
// ======================================================

func (uc *AddItems) Execute(
	ctx context.Context,
	in AddItemsInput,
) (*AddItemsOutput, error) {

	if len(in.Items) == 0 {
		return nil, httperr.ErrBusiness("empty_items")
	}

	out := &AddItemsOutput{
		Added:      []ItemResult{},
		Waitlisted: []ItemResult{},
		Rejected:   []ItemResult{},
	}

	for i, item := range in.Items {
		res := uc.addOne(ctx, in, item)
		res.Index = i
		res.Item = item

		switch res.Outcome {
		case OutcomeAdded:
			out.TransactionID = res.TransactionID
			out.Added = append(out.Added, res)
		case OutcomeWaitlisted:
			out.Waitlisted = append(out.Waitlisted, res)
		default:
			out.Rejected = append(out.Rejected, res)
		}
	}

	uc.audit.Dispatch(audit.Event{
		ActorID: &in.UserID,
		Action:  "cart_items_added",
		Entity:  "cart_transaction",
		Metadata: map[string]int{
			"added":      len(out.Added),
			"waitlisted": len(out.Waitlisted),
			"rejected":   len(out.Rejected),
		},
	})

	return out, nil
}

func (uc *AddItems) addOne(
	ctx context.Context,
	in AddItemsInput,
	item ItemInput,
) ItemResult {

	// --------------------------------------------------
	// 1️⃣ Shape
	// --------------------------------------------------
	rng := item.Range()
	if err := rng.Validate(); err != nil {
		return rejected(err)
	}
	if item.Price < 0 {
		return rejected(httperr.ErrBusiness("invalid_price"))
	}

	start, _, err := rng.Bounds(uc.loc)
	if err != nil {
		return rejected(httperr.ErrBusiness("invalid_date"))
	}
	if !start.After(uc.clock.Now()) {
		return rejected(httperr.ErrBusiness("slot_in_past"))
	}

	var res ItemResult

	err = uc.repo.Transaction(ctx, func(r domain.Repository) error {

		// --------------------------------------------------
		// 2️⃣ Court
		// --------------------------------------------------
		court, err := r.GetCourt(ctx, item.CourtID)
		if err != nil {
			return err
		}
		if !court.Active {
			return httperr.ErrBusiness("court_inactive")
		}
		if err := r.LockCourts(ctx, court.ID); err != nil {
			return err
		}

		// --------------------------------------------------
		// 3️⃣ Own cart
		// --------------------------------------------------
		cart, err := r.FindPendingTransaction(ctx, in.UserID)
		if err != nil {
			return err
		}
		ex := availability.Exclusion{UserID: in.UserID}
		if cart != nil {
			ex.TransactionID = cart.ID
			for _, it := range cart.Items {
				if it.CourtID == court.ID && rng.Overlaps(it.Range()) {
					return httperr.ErrBusiness("duplicate_in_cart")
				}
			}
		}

		// --------------------------------------------------
		// 4️⃣ Availability
		// --------------------------------------------------
		cl, err := uc.checker.Classify(ctx, r, court.ID, rng, ex)
		if err != nil {
			return err
		}

		switch cl.Outcome {
		case slot.Blocked:
			return httperr.ErrConflict(cl.BlockingBookingID)

		case slot.SoftHeld:
			if cl.BlockingBookingID != nil {
				holder, err := r.GetBooking(ctx, *cl.BlockingBookingID)
				if err != nil {
					return err
				}
				if holder.UserID == in.UserID {
					return httperr.ConflictError{Code: "already_booked", BlockingBookingID: cl.BlockingBookingID}
				}
			}

			entry, wItem, err := uc.waitlist.Enqueue(ctx, r, waitlist.EnqueueInput{
				UserID:            in.UserID,
				ByStaff:           in.IsStaff,
				CourtID:           court.ID,
				Range:             rng,
				Price:             item.Price,
				BlockingBookingID: cl.BlockingBookingID,
			})
			if err != nil {
				return err
			}
			res = ItemResult{
				Outcome:           OutcomeWaitlisted,
				CartItemID:        &wItem.ID,
				TransactionID:     &wItem.CartTransactionID,
				WaitlistEntryID:   &entry.ID,
				Position:          entry.Position,
				BlockingBookingID: cl.BlockingBookingID,
			}
			return nil
		}

		// --------------------------------------------------
		// 5️⃣ Find-or-create the pending cart
		// --------------------------------------------------
		if cart == nil {
			cart = &models.CartTransaction{
				UserID:         in.UserID,
				CreatedByStaff: in.IsStaff,
				Status:         domain.TxPending,
				ApprovalStatus: domain.ApprovalPending,
				PaymentStatus:  domain.PaymentUnpaid,
			}
			if err := r.CreateTransaction(ctx, cart); err != nil {
				return err
			}
		}

		ci := &models.CartItem{
			CartTransactionID: cart.ID,
			UserID:            in.UserID,
			CourtID:           court.ID,
			Date:              rng.Date,
			StartTime:         rng.Start,
			EndTime:           rng.End,
			Price:             item.Price,
			Status:            domain.ItemPending,
		}
		if err := r.CreateCartItem(ctx, ci); err != nil {
			return err
		}

		cart.TotalPrice += item.Price
		if err := r.UpdateTransaction(ctx, cart); err != nil {
			return err
		}

		res = ItemResult{
			Outcome:       OutcomeAdded,
			CartItemID:    &ci.ID,
			TransactionID: &cart.ID,
		}
		return nil
	})

	if err != nil {
		return rejected(err)
	}
	return res
}

func rejected(err error) ItemResult {
	res := ItemResult{Outcome: OutcomeRejected}

	var ce httperr.ConflictError
	var be httperr.BusinessError
	switch {
	case errors.As(err, &ce):
		res.ErrorCode = ce.Error()
		res.BlockingBookingID = ce.BlockingBookingID
	case errors.As(err, &be):
		res.ErrorCode = be.Code
	case httperr.IsExclusionConflict(err):
		res.ErrorCode = "slot_conflict"
	default:
		log.Error().Err(err).Msg("add cart item failed")
		res.ErrorCode = "internal_error"
	}
	return res
}
