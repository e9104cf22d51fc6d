package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Publisher delivers one event to the notification sender.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Notifier emits events after a database commit. Delivery failures are
// retried a few times and then logged; they never undo the committed work.
type Notifier struct {
	pub      Publisher
	attempts int
	backoff  time.Duration
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{
		pub:      pub,
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
}

func (n *Notifier) Emit(ctx context.Context, evs ...Event) {
	if n == nil || n.pub == nil {
		return
	}

	logger := log.Ctx(ctx)
	for _, ev := range evs {
		var err error
		for attempt := 1; attempt <= n.attempts; attempt++ {
			if err = n.pub.Publish(ctx, ev); err == nil {
				break
			}
			if attempt < n.attempts {
				time.Sleep(n.backoff * time.Duration(attempt))
			}
		}
		if err != nil {
			logger.Error().Err(err).
				Str("event_id", ev.ID).
				Str("event_type", string(ev.Type)).
				Uint("user_id", ev.UserID).
				Msg("failed to publish event")
		}
	}
}

// LogPublisher writes events to the log; used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev Event) error {
	log.Ctx(ctx).Info().
		Str("event_id", ev.ID).
		Str("event_type", string(ev.Type)).
		Uint("user_id", ev.UserID).
		Uint("court_id", ev.CourtID).
		Str("date", ev.Date).
		Str("start_time", ev.StartTime).
		Msg("event emitted")
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) OfType(t Type) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
