package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/testutil/engine"
	"github.com/courtbook/slot-engine/internal/usecase/cart"
)

func TestApproveCascadesToEveryChild(t *testing.T) {
	e := engine.New(t)

	out := e.CheckoutCart(t, 1,
		engine.Item(e.Courts[0].ID, tomorrow, "18:00", "19:00"),
		engine.Item(e.Courts[0].ID, tomorrow, "19:00", "20:00"),
		engine.Item(e.Courts[2].ID, tomorrow, "18:00", "19:00"),
	)

	res, err := e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: out.TransactionID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, res.ApprovalStatus)
	assert.ElementsMatch(t, out.BookingIDs, res.CascadedBookingIDs)
	assert.Empty(t, res.WaitlistPromotions)

	tx := e.Transaction(t, out.TransactionID)
	assert.Equal(t, domain.ApprovalApproved, tx.ApprovalStatus)
	for _, it := range tx.Items {
		assert.Equal(t, domain.ItemApproved, it.Status)
	}
	for _, b := range e.BookingsOf(t, tx.ID) {
		assert.Equal(t, string(domain.StatusApproved), b.Status)
		require.NotNil(t, b.ReviewedBy)
		assert.Equal(t, engine.StaffID, *b.ReviewedBy)
	}

	assert.Len(t, e.Events.OfType(events.BookingApproved), 3)

	_, err = e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: out.TransactionID,
	})
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))
}

func TestRejectCascadesAndPromotesWaitlist(t *testing.T) {
	e := engine.New(t)
	item := engine.Item(e.Courts[0].ID, tomorrow, "18:00", "19:00")

	held := e.Hold(t, 1, item)
	queued := e.Add(t, 2, item)
	require.Equal(t, cart.OutcomeWaitlisted, queued.Outcome)
	e.Add(t, 3, item)

	res, err := e.CartReview.Reject(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: held.TransactionID,
		Reason:        "proof_unreadable",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, res.ApprovalStatus)
	assert.Equal(t, held.BookingIDs, res.CascadedBookingIDs)
	require.Len(t, res.WaitlistPromotions, 1)

	tx := e.Transaction(t, held.TransactionID)
	assert.Equal(t, "proof_unreadable", tx.RejectionReason)
	for _, it := range tx.Items {
		assert.Equal(t, domain.ItemRejected, it.Status)
	}
	rejected := e.Booking(t, held.BookingIDs[0])
	assert.Equal(t, string(domain.StatusRejected), rejected.Status)
	assert.Equal(t, "proof_unreadable", rejected.RejectionReason)

	// the first in line is notified with a booking of their own
	entry := e.Entry(t, *queued.WaitlistEntryID)
	assert.Equal(t, domain.WaitlistNotified, entry.Status)
	require.NotNil(t, entry.PromotedBookingID)
	require.NotNil(t, entry.ExpiresAt)
	assert.WithinDuration(t, e.Clock.Now().Add(time.Hour), *entry.ExpiresAt, time.Second)
	assert.Nil(t, entry.PendingBookingID)

	promoted := e.Booking(t, *entry.PromotedBookingID)
	assert.Equal(t, uint(2), promoted.UserID)
	assert.Equal(t, string(domain.StatusPending), promoted.Status)
	assert.Equal(t, domain.PaymentUnpaid, promoted.PaymentStatus)

	// the enqueue-time hold no longer claims the entry
	hold := e.Transaction(t, *queued.TransactionID)
	assert.Nil(t, hold.WaitlistEntryID)
	assert.Equal(t, domain.TxCancelled, hold.Status)
	for _, it := range hold.Items {
		assert.Nil(t, it.WaitlistEntryID)
	}

	assert.Equal(t, 1, e.NotifiedCount(t, item.CourtID, item.Range()))

	notices := e.Events.OfType(events.WaitlistSlotAvailable)
	require.Len(t, notices, 1)
	assert.Equal(t, uint(2), notices[0].UserID)
	assert.Len(t, e.Events.OfType(events.BookingRejected), 1)
}

func TestApproveRefusesToDoubleBook(t *testing.T) {
	e := engine.New(t)
	item := engine.Item(e.Courts[0].ID, tomorrow, "18:00", "19:00")

	out := e.CheckoutCart(t, 1, item)

	// a confirmed booking that slipped in through another channel
	other := models.Booking{
		CourtID:       item.CourtID,
		UserID:        7,
		Date:          item.Date,
		StartTime:     "18:30",
		EndTime:       "19:30",
		Status:        string(domain.StatusApproved),
		PaymentStatus: domain.PaymentPaid,
	}
	require.NoError(t, e.DB.Create(&other).Error)

	_, err := e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: out.TransactionID,
	})
	require.True(t, httperr.IsConflict(err), "got %v", err)

	tx := e.Transaction(t, out.TransactionID)
	assert.Equal(t, domain.ApprovalPending, tx.ApprovalStatus)
	assert.Equal(t, string(domain.StatusPending), e.Booking(t, out.BookingIDs[0]).Status)
	assert.Empty(t, e.Events.OfType(events.BookingApproved))
}

func TestReviewRejectsOpenCart(t *testing.T) {
	e := engine.New(t)
	res := e.Add(t, 1, engine.Item(e.Courts[0].ID, tomorrow, "18:00", "19:00"))

	_, err := e.CartReview.Reject(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: *res.TransactionID,
	})
	assert.True(t, httperr.IsBusiness(err, "invalid_state"))

	_, err = e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: 4242,
	})
	assert.True(t, httperr.IsBusiness(err, "transaction_not_found"))
}

func TestRejectPromotesOverlappingWaitlistEntry(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID

	held := e.Hold(t, 1, engine.Item(court, tomorrow, "18:00", "20:00"))
	tail := e.Add(t, 2, engine.Item(court, tomorrow, "19:00", "20:00"))
	require.Equal(t, cart.OutcomeWaitlisted, tail.Outcome)
	whole := e.Add(t, 3, engine.Item(court, tomorrow, "18:00", "20:00"))
	require.Equal(t, cart.OutcomeWaitlisted, whole.Outcome)
	head := e.Add(t, 4, engine.Item(court, tomorrow, "18:00", "19:00"))
	require.Equal(t, cart.OutcomeWaitlisted, head.Outcome)

	res, err := e.CartReview.Reject(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: held.TransactionID,
	})
	require.NoError(t, err)
	require.Len(t, res.WaitlistPromotions, 2)

	// the sub-range queue is offered the freed hour
	entry := e.Entry(t, *tail.WaitlistEntryID)
	assert.Equal(t, domain.WaitlistNotified, entry.Status)
	assert.Nil(t, entry.PendingBookingID)
	require.NotNil(t, entry.PromotedBookingID)
	promoted := e.Booking(t, *entry.PromotedBookingID)
	assert.Equal(t, uint(2), promoted.UserID)
	assert.Equal(t, "19:00", promoted.StartTime)

	// the full range overlaps that offer and keeps waiting
	assert.Equal(t, domain.WaitlistPending, e.Entry(t, *whole.WaitlistEntryID).Status)

	// the other free hour goes to its own queue
	assert.Equal(t, domain.WaitlistNotified, e.Entry(t, *head.WaitlistEntryID).Status)

	notices := e.Events.OfType(events.WaitlistSlotAvailable)
	require.Len(t, notices, 2)
	assert.ElementsMatch(t, []uint{2, 4}, []uint{notices[0].UserID, notices[1].UserID})

	// nothing stranded is left for the sweeper
	rep, err := e.Sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.StrandedPromoted)
}
