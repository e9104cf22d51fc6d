package availability

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
)

// Exclusion removes the caller's own claims from a classification.
type Exclusion struct {
	// TransactionID skips items and bookings of this cart transaction.
	TransactionID uint
	// UserID skips cart items owned by this user.
	UserID uint
	// BookingID skips one booking, typically the one being approved.
	BookingID uint
}

// Checker classifies a candidate range against the bookings and other users'
// checked-out cart items on the same court. Callers pass the repository so a
// check can run inside the caller's database transaction.
type Checker struct {
	policy slot.Policy
	clock  clockwork.Clock
}

func NewChecker(policy slot.Policy, clock clockwork.Clock) *Checker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Checker{policy: policy, clock: clock}
}

func (c *Checker) Policy() slot.Policy {
	return c.policy
}

func (c *Checker) Now() time.Time {
	return c.clock.Now()
}

func (c *Checker) Classify(
	ctx context.Context,
	repo domain.Repository,
	courtID uint,
	rng slot.TimeRange,
	ex Exclusion,
) (slot.Classification, error) {

	holds, err := c.Holds(ctx, repo, courtID, rng, ex)
	if err != nil {
		return slot.Classification{}, err
	}
	return slot.Classify(rng, holds, c.policy, c.clock.Now()), nil
}

// Holds loads every claim that can intersect rng: records on the previous
// day, the candidate day and, for midnight-crossing ranges, the next day.
func (c *Checker) Holds(
	ctx context.Context,
	repo domain.Repository,
	courtID uint,
	rng slot.TimeRange,
	ex Exclusion,
) ([]slot.Hold, error) {

	dates := rng.SearchDates()

	bookings, err := repo.ListBookingsOnDates(ctx, courtID, dates)
	if err != nil {
		return nil, err
	}

	holds := make([]slot.Hold, 0, len(bookings))
	materialized := make(map[uint]bool, len(bookings))

	for i := range bookings {
		b := &bookings[i]
		if b.CartItemID != nil {
			materialized[*b.CartItemID] = true
		}
		if ex.BookingID != 0 && b.ID == ex.BookingID {
			continue
		}
		if ex.TransactionID != 0 && b.CartTransactionID != nil && *b.CartTransactionID == ex.TransactionID {
			continue
		}
		holds = append(holds, domain.HoldOf(b))
	}

	items, err := repo.ListHeldCartItemsOnDates(ctx, courtID, dates)
	if err != nil {
		return nil, err
	}

	for i := range items {
		it := &items[i]
		if ex.TransactionID != 0 && it.CartTransactionID == ex.TransactionID {
			continue
		}
		if ex.UserID != 0 && it.UserID == ex.UserID {
			continue
		}
		// the booking created at checkout already speaks for this item
		if materialized[it.ID] {
			continue
		}
		holds = append(holds, domain.HoldOfItem(it, it.Transaction, nil))
	}

	return holds, nil
}

// ConfirmedOverlap reports whether a confirmed claim overlaps rng and the
// booking behind it, if any. Unlike Classify it ignores holds that are only
// awaiting approval.
func (c *Checker) ConfirmedOverlap(
	ctx context.Context,
	repo domain.Repository,
	courtID uint,
	rng slot.TimeRange,
	ex Exclusion,
) (bool, *uint, error) {

	holds, err := c.Holds(ctx, repo, courtID, rng, ex)
	if err != nil {
		return false, nil, err
	}
	for _, h := range holds {
		if h.State == slot.HoldConfirmed && rng.Overlaps(h.Range) {
			return true, h.BookingID, nil
		}
	}
	return false, nil, nil
}
