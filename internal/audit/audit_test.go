package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtbook/slot-engine/internal/audit"
	"github.com/courtbook/slot-engine/internal/testutil"
)

func TestDispatcherDrainsOnClose(t *testing.T) {
	gdb := testutil.NewTestDB(t, nil)
	logger := audit.New(gdb)
	d := audit.NewDispatcher(logger)

	staff := uint(1)
	txID := uint(42)
	d.Dispatch(audit.Event{ActorID: &staff, Action: "cart_approved", Entity: "cart_transaction", EntityID: &txID, Metadata: map[string]any{"bookings": 2}})
	d.Dispatch(audit.Event{ActorID: &staff, Action: "cart_rejected", Entity: "cart_transaction", EntityID: &txID})
	d.Close()

	rows, total, err := logger.List(context.Background(), audit.Filter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, rows, 2)

	approved, _, err := logger.List(context.Background(), audit.Filter{Action: "cart_approved"})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.JSONEq(t, `{"bookings":2}`, approved[0].Metadata)
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *audit.Dispatcher
	d.Dispatch(audit.Event{Action: "noop"})
	d.Close()
}
