package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/courtbook/slot-engine/internal/models"
)

type flakyPublisher struct {
	failures int
	calls    int
	rec      Recorder
}

func (f *flakyPublisher) Publish(ctx context.Context, ev Event) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	return f.rec.Publish(ctx, ev)
}

func TestNotifierRetriesThenDelivers(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	n := NewNotifier(pub)
	n.backoff = time.Millisecond

	n.Emit(context.Background(), Approved(&models.Booking{ID: 7, UserID: 3}, time.Now()))

	assert.Equal(t, 3, pub.calls)
	assert.Len(t, pub.rec.Events(), 1)
}

func TestNotifierGivesUpWithoutPanicking(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	n := NewNotifier(pub)
	n.backoff = time.Millisecond

	n.Emit(context.Background(),
		Rejected(&models.Booking{ID: 1}, "no proof", time.Now()),
		Rejected(&models.Booking{ID: 2}, "no proof", time.Now()),
	)

	assert.Equal(t, 6, pub.calls)
	assert.Empty(t, pub.rec.Events())
}

func TestNilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	n.Emit(context.Background(), Approved(&models.Booking{ID: 1}, time.Now()))
}

func TestSlotAvailableCarriesDeadline(t *testing.T) {
	deadline := time.Date(2025, 11, 10, 8, 0, 0, 0, time.UTC)
	entry := &models.WaitlistEntry{ID: 4, UserID: 9, CourtID: 1, Date: "2025-11-08", StartTime: "20:00", EndTime: "21:00", ExpiresAt: &deadline}

	ev := SlotAvailable(entry, 12, time.Now())

	assert.Equal(t, WaitlistSlotAvailable, ev.Type)
	assert.Equal(t, uint(9), ev.UserID)
	assert.Equal(t, uint(12), *ev.BookingID)
	assert.Equal(t, uint(4), *ev.EntryID)
	assert.Equal(t, deadline, *ev.ExpiresAt)
	assert.NotEmpty(t, ev.ID)
}
