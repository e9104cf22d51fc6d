package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/testutil/engine"
	"github.com/courtbook/slot-engine/internal/usecase/cart"
)

const tomorrow = "2026-03-03"

func TestAddItemsCreatesPendingCart(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID

	res := e.Add(t, 1, engine.Item(court, tomorrow, "18:00", "19:00"))
	require.Equal(t, cart.OutcomeAdded, res.Outcome)
	require.NotNil(t, res.TransactionID)

	res2 := e.Add(t, 1, engine.Item(court, tomorrow, "19:00", "20:00"))
	require.Equal(t, cart.OutcomeAdded, res2.Outcome)
	assert.Equal(t, *res.TransactionID, *res2.TransactionID)

	got, err := e.GetCart.Execute(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, 200.0, got.TotalPrice)
	assert.Equal(t, domain.TxPending, got.Status)
	assert.Equal(t, domain.PaymentUnpaid, got.PaymentStatus)
}

func TestAddItemsRejectsInvalidRequests(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID

	e.Add(t, 1, engine.Item(court, tomorrow, "18:00", "19:00"))

	cases := []struct {
		name string
		item cart.ItemInput
		code string
	}{
		{"duplicate", engine.Item(court, tomorrow, "18:30", "19:30"), "duplicate_in_cart"},
		{"past", engine.Item(court, "2026-03-02", "09:00", "10:00"), "slot_in_past"},
		{"unknown court", engine.Item(999, tomorrow, "18:00", "19:00"), "court_not_found"},
		{"bad date", engine.Item(court, "2026-02-30", "18:00", "19:00"), "invalid_date"},
		{"bad time", engine.Item(court, tomorrow, "25:00", "19:00"), "invalid_time_range"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Add(t, 1, tc.item)
			assert.Equal(t, cart.OutcomeRejected, res.Outcome)
			assert.Equal(t, tc.code, res.ErrorCode)
		})
	}
}

func TestAddItemsRejectsInactiveCourt(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[1]
	require.NoError(t, e.DB.Model(&court).Update("active", false).Error)

	res := e.Add(t, 1, engine.Item(court.ID, tomorrow, "18:00", "19:00"))
	assert.Equal(t, cart.OutcomeRejected, res.Outcome)
	assert.Equal(t, "court_inactive", res.ErrorCode)
}

func TestAddItemsBlockedWithinGraceWindow(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID
	item := engine.Item(court, tomorrow, "18:00", "19:00")

	held := e.CheckoutCart(t, 1, item)

	res := e.Add(t, 2, item)
	assert.Equal(t, cart.OutcomeRejected, res.Outcome)
	assert.Equal(t, "slot_conflict", res.ErrorCode)
	require.NotNil(t, res.BlockingBookingID)
	assert.Equal(t, held.BookingIDs[0], *res.BlockingBookingID)
}

func TestAddItemsWaitlistsOnSoftHeldSlot(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID
	item := engine.Item(court, tomorrow, "18:00", "19:00")

	held := e.Hold(t, 1, item)

	second := e.Add(t, 2, item)
	require.Equal(t, cart.OutcomeWaitlisted, second.Outcome)
	require.NotNil(t, second.WaitlistEntryID)
	assert.Equal(t, 1, second.Position)

	third := e.Add(t, 3, item)
	require.Equal(t, cart.OutcomeWaitlisted, third.Outcome)
	assert.Equal(t, 2, third.Position)

	entry := e.Entry(t, *second.WaitlistEntryID)
	assert.Equal(t, domain.WaitlistPending, entry.Status)
	require.NotNil(t, entry.PendingBookingID)
	assert.Equal(t, held.BookingIDs[0], *entry.PendingBookingID)

	hold := e.Transaction(t, *second.TransactionID)
	require.NotNil(t, hold.WaitlistEntryID)
	assert.Equal(t, entry.ID, *hold.WaitlistEntryID)

	// the hold transaction is not the user's shopping cart
	own, err := e.GetCart.Execute(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, own)

	again := e.Add(t, 2, item)
	assert.Equal(t, "already_waitlisted", again.ErrorCode)

	mine := e.Add(t, 1, item)
	assert.Equal(t, "already_booked", mine.ErrorCode)
}

func TestAddItemsResolvesEachItemIndependently(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID

	e.CheckoutCart(t, 1, engine.Item(court, tomorrow, "18:00", "19:00"))

	out, err := e.AddItems.Execute(context.Background(), cart.AddItemsInput{
		UserID: 2,
		Items: []cart.ItemInput{
			engine.Item(court, tomorrow, "18:00", "19:00"),
			engine.Item(court, tomorrow, "20:00", "21:00"),
		},
	})
	require.NoError(t, err)
	assert.Len(t, out.Added, 1)
	assert.Len(t, out.Rejected, 1)
	assert.Equal(t, 1, out.Added[0].Index)
	assert.Equal(t, 0, out.Rejected[0].Index)
}

func TestAddItemsRequiresItems(t *testing.T) {
	e := engine.New(t)

	_, err := e.AddItems.Execute(context.Background(), cart.AddItemsInput{UserID: 1})
	assert.True(t, httperr.IsBusiness(err, "empty_items"))
}

func TestRemoveItemRecomputesTotal(t *testing.T) {
	e := engine.New(t)
	court := e.Courts[0].ID

	first := e.Add(t, 1, engine.Item(court, tomorrow, "18:00", "19:00"))
	e.Add(t, 1, engine.Item(court, tomorrow, "19:00", "20:00"))

	got, err := e.RemoveItem.Execute(context.Background(), 1, *first.CartItemID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 100.0, got.TotalPrice)

	_, err = e.RemoveItem.Execute(context.Background(), 1, *first.CartItemID)
	assert.True(t, httperr.IsBusiness(err, "cart_item_not_found"))

	_, err = e.RemoveItem.Execute(context.Background(), 2, got.Items[0].ID)
	assert.True(t, httperr.IsBusiness(err, "cart_item_not_found"))
}
