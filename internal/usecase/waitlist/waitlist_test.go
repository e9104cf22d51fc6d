package waitlist_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/testutil/engine"
	"github.com/courtbook/slot-engine/internal/usecase/booking"
	"github.com/courtbook/slot-engine/internal/usecase/cart"
)

const tomorrow = "2026-03-03"

type queue struct {
	item    cart.ItemInput
	holder  *cart.CheckoutOutput
	entries []uint
}

// soft-holds a slot for user 1 and queues the given users behind it.
func newQueue(t *testing.T, e *engine.Engine, users ...uint) *queue {
	t.Helper()

	q := &queue{item: engine.Item(e.Courts[0].ID, tomorrow, "18:00", "19:00")}
	q.holder = e.Hold(t, 1, q.item)
	for _, u := range users {
		res := e.Add(t, u, q.item)
		require.Equal(t, cart.OutcomeWaitlisted, res.Outcome, "user %d: %s", u, res.ErrorCode)
		q.entries = append(q.entries, *res.WaitlistEntryID)
	}
	return q
}

func (q *queue) release(t *testing.T, e *engine.Engine) {
	t.Helper()
	_, err := e.CartReview.Reject(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: q.holder.TransactionID,
		Reason:        "proof_unreadable",
	})
	require.NoError(t, err)
}

func TestPromotionCascadesThroughTheQueue(t *testing.T) {
	e := engine.New(t)
	q := newQueue(t, e, 2, 3, 4)
	q.release(t, e)

	first := e.Entry(t, q.entries[0])
	require.Equal(t, domain.WaitlistNotified, first.Status)
	assert.Equal(t, domain.WaitlistPending, e.Entry(t, q.entries[1]).Status)
	assert.Equal(t, 1, e.NotifiedCount(t, q.item.CourtID, q.item.Range()))

	// first in line never pays
	e.Clock.Advance(time.Hour + time.Minute)

	batch, err := e.ExpireEntry.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Expired)
	require.Len(t, batch.Promotions, 1)
	assert.Equal(t, uint(3), batch.Promotions[0].Entry.UserID)

	first = e.Entry(t, q.entries[0])
	assert.Equal(t, domain.WaitlistExpired, first.Status)
	lost := e.Booking(t, *first.PromotedBookingID)
	assert.Equal(t, string(domain.StatusRejected), lost.Status)
	assert.Equal(t, "waitlist_deadline_expired", lost.RejectionReason)

	second := e.Entry(t, q.entries[1])
	require.Equal(t, domain.WaitlistNotified, second.Status)
	require.NotNil(t, second.ExpiresAt)
	assert.WithinDuration(t, e.Clock.Now().Add(time.Hour), *second.ExpiresAt, time.Second)

	promoted := e.Booking(t, *second.PromotedBookingID)
	assert.Equal(t, uint(3), promoted.UserID)
	assert.Equal(t, string(domain.StatusPending), promoted.Status)
	assert.Equal(t, domain.PaymentUnpaid, promoted.PaymentStatus)

	assert.Equal(t, domain.WaitlistPending, e.Entry(t, q.entries[2]).Status)
	assert.Equal(t, 1, e.NotifiedCount(t, q.item.CourtID, q.item.Range()))

	notices := e.Events.OfType(events.WaitlistSlotAvailable)
	require.Len(t, notices, 2)
	assert.Equal(t, uint(2), notices[0].UserID)
	assert.Equal(t, uint(3), notices[1].UserID)
}

func TestExpireIfOverdueIsIdempotent(t *testing.T) {
	e := engine.New(t)
	q := newQueue(t, e, 2, 3)
	q.release(t, e)

	// not overdue yet
	res, err := e.ExpireEntry.Execute(context.Background(), nil, q.entries[0])
	require.NoError(t, err)
	assert.False(t, res.Expired)

	e.Clock.Advance(2 * time.Hour)

	res, err = e.ExpireEntry.Execute(context.Background(), nil, q.entries[0])
	require.NoError(t, err)
	assert.True(t, res.Expired)
	require.Len(t, res.Promotions, 1)
	assert.Equal(t, q.entries[1], res.Promotions[0].Entry.ID)

	again, err := e.ExpireEntry.Execute(context.Background(), nil, q.entries[0])
	require.NoError(t, err)
	assert.False(t, again.Expired)
	assert.Empty(t, again.Promotions)

	assert.Equal(t, domain.WaitlistNotified, e.Entry(t, q.entries[1]).Status)
	assert.Len(t, e.Events.OfType(events.WaitlistSlotAvailable), 2)
}

func TestPaymentBeforeDeadlineWinsOverExpiry(t *testing.T) {
	e := engine.New(t)
	q := newQueue(t, e, 2, 3)
	q.release(t, e)

	entry := e.Entry(t, q.entries[0])
	paid, err := e.Pay.Execute(context.Background(), booking.PayInput{
		ActorID:   2,
		BookingID: *entry.PromotedBookingID,
		ProofRef:  engine.ProofRef,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)

	e.Clock.Advance(2 * time.Hour)

	batch, err := e.ExpireEntry.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, batch.Expired)
	assert.Empty(t, batch.Promotions)
	assert.Equal(t, domain.WaitlistNotified, e.Entry(t, q.entries[0]).Status)

	approved, err := e.BookingReview.Approve(context.Background(), engine.StaffID, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusApproved), approved.Status)

	assert.Equal(t, domain.WaitlistConverted, e.Entry(t, q.entries[0]).Status)
	assert.Equal(t, domain.WaitlistPending, e.Entry(t, q.entries[1]).Status)
	assert.Zero(t, e.NotifiedCount(t, q.item.CourtID, q.item.Range()))
}

func TestLatePaymentExpiresAndPromotesNext(t *testing.T) {
	e := engine.New(t)
	q := newQueue(t, e, 2, 3)
	q.release(t, e)

	entry := e.Entry(t, q.entries[0])
	e.Clock.Advance(90 * time.Minute)

	_, err := e.Pay.Execute(context.Background(), booking.PayInput{
		ActorID:   2,
		BookingID: *entry.PromotedBookingID,
		ProofRef:  engine.ProofRef,
	})
	require.True(t, httperr.IsDeadlineExpired(err), "got %v", err)

	// the expiry committed even though the call failed
	assert.Equal(t, domain.WaitlistExpired, e.Entry(t, q.entries[0]).Status)
	assert.Equal(t, string(domain.StatusRejected), e.Booking(t, *entry.PromotedBookingID).Status)
	assert.Equal(t, domain.WaitlistNotified, e.Entry(t, q.entries[1]).Status)

	_, err = e.Pay.Execute(context.Background(), booking.PayInput{
		ActorID:   2,
		BookingID: *entry.PromotedBookingID,
		ProofRef:  engine.ProofRef,
	})
	assert.True(t, httperr.IsDeadlineExpired(err))
	assert.Equal(t, 1, e.NotifiedCount(t, q.item.CourtID, q.item.Range()))
}

func TestDeadlineSkipsClosedDays(t *testing.T) {
	e := engine.New(t)
	item := engine.Item(e.Courts[0].ID, "2026-03-10", "18:00", "19:00")

	held := e.Hold(t, 1, item)
	res := e.Add(t, 2, item)
	require.Equal(t, cart.OutcomeWaitlisted, res.Outcome)

	// Saturday evening, after closing
	saturday := time.Date(2026, 3, 7, 18, 0, 0, 0, time.UTC)
	e.Clock.Advance(saturday.Sub(e.Clock.Now()))

	_, err := e.CartReview.Reject(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: held.TransactionID,
	})
	require.NoError(t, err)

	entry := e.Entry(t, *res.WaitlistEntryID)
	require.NotNil(t, entry.ExpiresAt)
	monday := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	assert.True(t, monday.Equal(*entry.ExpiresAt), "expires at %s", entry.ExpiresAt)
}

func TestPromotionWaitsWhileSlotIsBlocked(t *testing.T) {
	e := engine.New(t)
	q := newQueue(t, e, 2)

	_, err := e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: q.holder.TransactionID,
	})
	require.NoError(t, err)

	promo, err := e.Manager.PromoteNext(context.Background(), e.Repo, q.item.CourtID, q.item.Range())
	require.NoError(t, err)
	assert.Nil(t, promo)
	assert.Equal(t, domain.WaitlistPending, e.Entry(t, q.entries[0]).Status)
}

func TestCancelEntry(t *testing.T) {
	e := engine.New(t)
	q := newQueue(t, e, 2, 3, 4)
	q.release(t, e)

	// someone else's entry
	_, err := e.CancelEntry.Execute(context.Background(), 3, false, q.entries[0])
	assert.True(t, httperr.IsBusiness(err, "waitlist_entry_not_found"))

	// a pending entry just leaves the queue
	cancelled, err := e.CancelEntry.Execute(context.Background(), 4, false, q.entries[2])
	require.NoError(t, err)
	assert.Equal(t, domain.WaitlistCancelled, cancelled.Status)
	assert.Equal(t, domain.WaitlistPending, e.Entry(t, q.entries[1]).Status)

	// a notified entry gives the slot to the next in line
	notified := e.Entry(t, q.entries[0])
	_, err = e.CancelEntry.Execute(context.Background(), 2, false, q.entries[0])
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusCancelled), e.Booking(t, *notified.PromotedBookingID).Status)
	assert.Equal(t, domain.WaitlistNotified, e.Entry(t, q.entries[1]).Status)

	_, err = e.CancelEntry.Execute(context.Background(), 2, false, q.entries[0])
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))

	mine, err := e.ListEntries.Execute(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.WaitlistCancelled, mine[0].Status)
}
