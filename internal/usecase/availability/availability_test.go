package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/testutil/engine"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/cart"
)

func classify(t *testing.T, e *engine.Engine, userID, courtID uint, date, start, end string) *availability.SlotView {
	t.Helper()
	view, err := e.Availability.Execute(context.Background(), availability.GetAvailabilityInput{
		CourtID: courtID,
		Range:   slot.TimeRange{Date: date, Start: start, End: end},
		UserID:  userID,
	})
	require.NoError(t, err)
	return view
}

func TestMidnightSlotFromPaymentToApproval(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID
	late := engine.Item(court, "2026-03-03", "20:00", "00:00")

	out := e.CheckoutCart(t, 1, late)
	bookingA := out.BookingIDs[0]

	// paid but fresh
	view := classify(t, e, 2, court, "2026-03-03", "20:00", "00:00")
	assert.Equal(t, slot.Blocked, view.Outcome)

	e.Clock.Advance(engine.GraceTime + time.Minute)

	view = classify(t, e, 2, court, "2026-03-03", "23:00", "01:00")
	assert.Equal(t, slot.SoftHeld, view.Outcome)
	require.NotNil(t, view.BlockingBookingID)
	assert.Equal(t, bookingA, *view.BlockingBookingID)

	// the range ends exactly at midnight
	view = classify(t, e, 2, court, "2026-03-04", "00:00", "01:00")
	assert.Equal(t, slot.Available, view.Outcome)

	queued := e.Add(t, 2, late)
	assert.Equal(t, cart.OutcomeWaitlisted, queued.Outcome)

	_, err := e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: out.TransactionID,
	})
	require.NoError(t, err)

	res := e.Add(t, 3, late)
	assert.Equal(t, cart.OutcomeRejected, res.Outcome)
	assert.Equal(t, "slot_conflict", res.ErrorCode)
	require.NotNil(t, res.BlockingBookingID)
	assert.Equal(t, bookingA, *res.BlockingBookingID)

	view = classify(t, e, 3, court, "2026-03-03", "23:30", "00:30")
	assert.Equal(t, slot.Blocked, view.Outcome)
}

func TestPreviousDayContinuationBlocksEarlyHours(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[1].ID

	out := e.CheckoutCart(t, 1, engine.Item(court, "2026-03-03", "23:00", "01:00"))
	_, err := e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: out.TransactionID,
	})
	require.NoError(t, err)

	view := classify(t, e, 2, court, "2026-03-04", "00:30", "01:30")
	assert.Equal(t, slot.Blocked, view.Outcome)

	view = classify(t, e, 2, court, "2026-03-04", "01:00", "02:00")
	assert.Equal(t, slot.Available, view.Outcome)

	res := e.Add(t, 2, engine.Item(court, "2026-03-04", "00:00", "01:00"))
	assert.Equal(t, cart.OutcomeRejected, res.Outcome)
}

func TestUnpaidCartItemsDoNotHoldSlots(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[2].ID

	res := e.Add(t, 1, engine.Item(court, "2026-03-03", "15:00", "16:00"))
	require.Equal(t, cart.OutcomeAdded, res.Outcome)

	view := classify(t, e, 2, court, "2026-03-03", "15:00", "16:00")
	assert.Equal(t, slot.Available, view.Outcome)

	other := e.Add(t, 2, engine.Item(court, "2026-03-03", "15:00", "16:00"))
	assert.Equal(t, cart.OutcomeAdded, other.Outcome)
}

func TestAvailabilityRejectsBadInput(t *testing.T) {
	e := engine.New(t)

	_, err := e.Availability.Execute(context.Background(), availability.GetAvailabilityInput{
		CourtID: e.Courts[0].ID,
		Range:   slot.TimeRange{Date: "2026-03-03", Start: "25:00", End: "10:00"},
	})
	assert.True(t, httperr.IsBusiness(err, "invalid_time_range"))

	_, err = e.Availability.Execute(context.Background(), availability.GetAvailabilityInput{
		CourtID: 404,
		Range:   slot.TimeRange{Date: "2026-03-03", Start: "10:00", End: "11:00"},
	})
	assert.True(t, httperr.IsBusiness(err, "court_not_found"))
}

func TestDaySlotsGrid(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID

	out := e.CheckoutCart(t, 1, engine.Item(court, "2026-03-03", "09:00", "10:00"))
	_, err := e.CartReview.Approve(context.Background(), cart.ReviewInput{
		StaffID:       engine.StaffID,
		TransactionID: out.TransactionID,
	})
	require.NoError(t, err)

	views, err := e.Availability.DaySlots(context.Background(), availability.DaySlotsInput{
		CourtID: court,
		Date:    "2026-03-03",
		From:    "08:00",
		To:      "12:00",
	})
	require.NoError(t, err)
	require.Len(t, views, 4)

	assert.Equal(t, "08:00", views[0].Start)
	assert.Equal(t, slot.Available, views[0].Outcome)
	assert.Equal(t, "09:00", views[1].Start)
	assert.Equal(t, slot.Blocked, views[1].Outcome)
	assert.Equal(t, slot.Available, views[2].Outcome)
	assert.Equal(t, "12:00", views[3].End)

	day, err := e.Availability.DaySlots(context.Background(), availability.DaySlotsInput{
		CourtID: court,
		Date:    "2026-03-03",
	})
	require.NoError(t, err)
	assert.Len(t, day, 24)

	_, err = e.Availability.DaySlots(context.Background(), availability.DaySlotsInput{
		CourtID: court,
		Date:    "2026-03-03",
		From:    "10:00",
		To:      "10:30",
	})
	assert.True(t, httperr.IsBusiness(err, "invalid_time_range"))
}
