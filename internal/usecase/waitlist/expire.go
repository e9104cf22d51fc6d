package waitlist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/timezone"
)

type ExpireResult struct {
	EntryID    uint        `json:"entry_id"`
	Expired    bool        `json:"expired"`
	Promotions []Promotion `json:"promotions,omitempty"`
}

// ExpireEntry runs ExpireIfOverdue in its own database transaction and sends
// the promotion notice after commit.
type ExpireEntry struct {
	repo     domain.Repository
	manager  *Manager
	notifier *events.Notifier
	audit    *audit.Dispatcher
}

func NewExpireEntry(
	repo domain.Repository,
	manager *Manager,
	notifier *events.Notifier,
	audit *audit.Dispatcher,
) *ExpireEntry {
	return &ExpireEntry{
		repo:     repo,
		manager:  manager,
		notifier: notifier,
		audit:    audit,
	}
}

func (uc *ExpireEntry) Execute(
	ctx context.Context,
	actorID *uint,
	entryID uint,
) (*ExpireResult, error) {

	res := &ExpireResult{EntryID: entryID}

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		expired, promos, err := uc.manager.ExpireIfOverdue(ctx, r, entryID)
		if err != nil {
			return err
		}
		res.Expired = expired
		res.Promotions = promos
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, PromotionEvents(res.Promotions, uc.manager.Now())...)
	if res.Expired {
		uc.audit.Dispatch(audit.Event{
			ActorID:  actorID,
			Action:   "waitlist_expired",
			Entity:   "waitlist_entry",
			EntityID: &entryID,
		})
	}
	return res, nil
}

type BatchResult struct {
	Expired    int
	Promotions []Promotion
	Failed     int
}

// ExpireOverdue expires every notified entry past its deadline, one database
// transaction per entry. A failing entry is logged and left for the next run.
func (uc *ExpireEntry) ExpireOverdue(ctx context.Context) (*BatchResult, error) {
	now := uc.manager.Now()

	overdue, err := uc.repo.ListOverdueWaitlist(ctx, now)
	if err != nil {
		return nil, err
	}

	out := &BatchResult{}
	for _, e := range overdue {
		res, err := uc.Execute(ctx, nil, e.ID)
		if err != nil {
			out.Failed++
			log.Ctx(ctx).Error().Err(err).Uint("entry_id", e.ID).Msg("expire overdue waitlist entry failed")
			continue
		}
		if res.Expired {
			out.Expired++
		}
		out.Promotions = append(out.Promotions, res.Promotions...)
	}
	return out, nil
}

// ExpireStarted closes pending entries whose slot has already begun.
func (uc *ExpireEntry) ExpireStarted(ctx context.Context) (int, error) {
	now := uc.manager.Now()
	today := timezone.Today(now, uc.manager.Location())

	pending, err := uc.repo.ListPendingWaitlistUpTo(ctx, today)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, e := range pending {
		start, _, err := e.Range().Bounds(uc.manager.Location())
		if err != nil || start.After(now) {
			continue
		}

		var done bool
		err = uc.repo.Transaction(ctx, func(r domain.Repository) error {
			var err error
			done, err = uc.manager.ExpireStarted(ctx, r, e.ID)
			return err
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Uint("entry_id", e.ID).Msg("expire started waitlist entry failed")
			continue
		}
		if done {
			expired++
		}
	}
	return expired, nil
}

// PromoteStranded offers free slots to pending entries that no release
// reached, one database transaction per distinct queue. Entries from
// yesterday on are scanned so midnight-crossing slots are included.
func (uc *ExpireEntry) PromoteStranded(ctx context.Context) ([]Promotion, error) {
	now := uc.manager.Now()
	yesterday := timezone.Today(now.AddDate(0, 0, -1), uc.manager.Location())

	pending, err := uc.repo.ListPendingWaitlistFrom(ctx, yesterday)
	if err != nil {
		return nil, err
	}

	type queue struct {
		courtID uint
		rng     slot.TimeRange
	}
	var (
		queues []queue
		seen   = map[string]bool{}
	)
	for _, e := range pending {
		key := fmt.Sprintf("%d %s", e.CourtID, e.Range().Key())
		if seen[key] {
			continue
		}
		seen[key] = true
		queues = append(queues, queue{courtID: e.CourtID, rng: e.Range()})
	}

	var out []Promotion
	for _, q := range queues {
		var promos []Promotion
		err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
			var err error
			promos, err = uc.manager.PromoteReleased(ctx, r, q.courtID, q.rng)
			return err
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).
				Uint("court_id", q.courtID).
				Str("range", q.rng.Key()).
				Msg("promote stranded waitlist queue failed")
			continue
		}
		uc.notifier.Emit(ctx, PromotionEvents(promos, now)...)
		out = append(out, promos...)
	}
	return out, nil
}
