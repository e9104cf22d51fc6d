package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/infra/lock"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/cascade"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

const lockKey = "reconcile-sweeper"

// InvariantViolation records a cart transaction whose children disagree with
// it. It is logged and repaired, never returned to a caller.
type InvariantViolation struct {
	TransactionID   uint
	Target          domain.Target
	BookingIDs      []uint
	ItemIDs         []uint
	MissingBookings int
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf(
		"transaction %d (%s): %d bookings and %d items out of step, %d bookings missing",
		v.TransactionID, v.Target, len(v.BookingIDs), len(v.ItemIDs), v.MissingBookings,
	)
}

type Options struct {
	Lookback   time.Duration
	PendingTTL time.Duration
	LockTTL    time.Duration
}

type Report struct {
	Skipped          bool      `json:"skipped"`
	StartedAt        time.Time `json:"started_at"`
	ExpiredEntries   int       `json:"expired_entries"`
	ExpiredPending   int       `json:"expired_pending_entries"`
	RepairedTxs      int       `json:"repaired_transactions"`
	ExpiredCarts     int       `json:"expired_carts"`
	Promotions       int       `json:"promotions"`
	StrandedPromoted int       `json:"stranded_promoted"`
	Failures         int       `json:"failures"`
}

// Sweeper repairs drift left by crashes between steps and retires stale
// state. Each item runs in its own database transaction; a failure is logged
// and picked up again on the next run.
type Sweeper struct {
	repo     domain.Repository
	waitlist *waitlist.Manager
	expirer  *waitlist.ExpireEntry
	notifier *events.Notifier
	audit    *audit.Dispatcher
	locker   lock.Locker
	clock    clockwork.Clock
	opts     Options
}

func NewSweeper(
	repo domain.Repository,
	manager *waitlist.Manager,
	expirer *waitlist.ExpireEntry,
	notifier *events.Notifier,
	audit *audit.Dispatcher,
	locker lock.Locker,
	clock clockwork.Clock,
	opts Options,
) *Sweeper {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	return &Sweeper{
		repo:     repo,
		waitlist: manager,
		expirer:  expirer,
		notifier: notifier,
		audit:    audit,
		locker:   locker,
		clock:    clock,
		opts:     opts,
	}
}

func (s *Sweeper) Run(ctx context.Context) (*Report, error) {
	rep := &Report{StartedAt: s.clock.Now()}
	logger := log.Ctx(ctx).With().Str("component", "reconcile").Logger()

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, lockKey, s.opts.LockTTL)
		if errors.Is(err, lock.ErrNotAcquired) {
			logger.Info().Msg("another sweep is running, skipping")
			rep.Skipped = true
			return rep, nil
		}
		if err != nil {
			return nil, err
		}
		defer release()
	}

	// --------------------------------------------------
	// 1. Overdue notified entries
	// --------------------------------------------------
	batch, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("list overdue waitlist entries failed")
		rep.Failures++
	} else {
		rep.ExpiredEntries = batch.Expired
		rep.Promotions += len(batch.Promotions)
		rep.Failures += batch.Failed
	}

	// --------------------------------------------------
	// 2. Pending entries whose slot already started
	// --------------------------------------------------
	n, err := s.expirer.ExpireStarted(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("expire started waitlist entries failed")
		rep.Failures++
	}
	rep.ExpiredPending = n

	// --------------------------------------------------
	// 3. Parent/child drift
	// --------------------------------------------------
	s.repairDrift(ctx, rep)

	// --------------------------------------------------
	// 4. Abandoned carts
	// --------------------------------------------------
	s.expireCarts(ctx, rep)

	// --------------------------------------------------
	// 5. Pending entries on a free slot that no release reached
	// --------------------------------------------------
	stranded, err := s.expirer.PromoteStranded(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("promote stranded waitlist entries failed")
		rep.Failures++
	}
	rep.StrandedPromoted = len(stranded)
	rep.Promotions += len(stranded)

	logger.Info().
		Int("expired_entries", rep.ExpiredEntries).
		Int("expired_pending", rep.ExpiredPending).
		Int("repaired", rep.RepairedTxs).
		Int("expired_carts", rep.ExpiredCarts).
		Int("promotions", rep.Promotions).
		Int("stranded_promoted", rep.StrandedPromoted).
		Int("failures", rep.Failures).
		Msg("sweep finished")

	s.audit.Dispatch(audit.Event{
		Action:   "reconcile_sweep",
		Entity:   "system",
		Metadata: rep,
	})
	return rep, nil
}

func (s *Sweeper) repairDrift(ctx context.Context, rep *Report) {
	now := s.clock.Now()

	txs, err := s.repo.ListSettledTransactionsSince(ctx, now.Add(-s.opts.Lookback))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("list settled transactions failed")
		rep.Failures++
		return
	}

	for i := range txs {
		bookings, err := s.repo.ListBookingsByTransaction(ctx, txs[i].ID)
		if err != nil {
			rep.Failures++
			continue
		}
		drift, ok := cascade.Inspect(&txs[i], bookings)
		if !ok || drift.Empty() {
			continue
		}

		violation := InvariantViolation{
			TransactionID:   txs[i].ID,
			Target:          drift.Target,
			BookingIDs:      drift.BookingIDs,
			ItemIDs:         drift.ItemIDs,
			MissingBookings: drift.MissingBookings,
		}
		log.Ctx(ctx).Warn().Err(violation).Uint("transaction_id", txs[i].ID).Msg("invariant violation detected")

		promos, err := s.repair(ctx, txs[i].ID)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Uint("transaction_id", txs[i].ID).Msg("repair failed")
			rep.Failures++
			continue
		}
		rep.RepairedTxs++
		rep.Promotions += len(promos)
		s.notifier.Emit(ctx, waitlist.PromotionEvents(promos, s.clock.Now())...)
	}
}

// repair re-reads the transaction under lock and re-applies the target its
// own fields imply. A checked-out cart that lost bookings cannot be honoured
// and is rejected instead.
func (s *Sweeper) repair(ctx context.Context, txID uint) ([]waitlist.Promotion, error) {
	var promos []waitlist.Promotion

	err := s.repo.Transaction(ctx, func(r domain.Repository) error {
		tx, err := r.LockTransaction(ctx, txID)
		if err != nil {
			return err
		}
		bookings, err := r.ListBookingsByTransaction(ctx, tx.ID)
		if err != nil {
			return err
		}
		drift, ok := cascade.Inspect(tx, bookings)
		if !ok || drift.Empty() {
			return nil
		}

		if err := lockItemCourts(ctx, r, tx.Items); err != nil {
			return err
		}

		target := drift.Target
		reason := "reconciled"
		if drift.MissingBookings > 0 && target == domain.TargetCheckedOut {
			target = domain.TargetRejected
			reason = "reconcile_missing_bookings"
		}

		res, err := cascade.Apply(ctx, r, tx, target, cascade.Meta{
			Now:    s.clock.Now(),
			Reason: reason,
		})
		if err != nil {
			return err
		}

		for _, ref := range res.Released {
			p, err := s.waitlist.PromoteReleased(ctx, r, ref.CourtID, ref.Range)
			if err != nil {
				return err
			}
			promos = append(promos, p...)
		}
		return nil
	})
	return promos, err
}

func (s *Sweeper) expireCarts(ctx context.Context, rep *Report) {
	now := s.clock.Now()

	stale, err := s.repo.ListStalePendingTransactions(ctx, now.Add(-s.opts.PendingTTL))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("list stale carts failed")
		rep.Failures++
		return
	}

	for i := range stale {
		var promos []waitlist.Promotion

		err := s.repo.Transaction(ctx, func(r domain.Repository) error {
			tx, err := r.LockTransaction(ctx, stale[i].ID)
			if err != nil {
				return err
			}
			// touched since it was listed
			if tx.Status != domain.TxPending || tx.PaymentStatus != domain.PaymentUnpaid {
				return nil
			}
			if err := lockItemCourts(ctx, r, tx.Items); err != nil {
				return err
			}

			res, err := cascade.Apply(ctx, r, tx, domain.TargetExpired, cascade.Meta{
				Now:    s.clock.Now(),
				Reason: "cart_expired",
			})
			if err != nil {
				return err
			}
			for _, ref := range res.Released {
				p, err := s.waitlist.PromoteReleased(ctx, r, ref.CourtID, ref.Range)
				if err != nil {
					return err
				}
				promos = append(promos, p...)
			}
			return nil
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Uint("transaction_id", stale[i].ID).Msg("expire cart failed")
			rep.Failures++
			continue
		}

		rep.ExpiredCarts++
		rep.Promotions += len(promos)
		s.notifier.Emit(ctx, waitlist.PromotionEvents(promos, s.clock.Now())...)
	}
}

func lockItemCourts(ctx context.Context, r domain.Repository, items []models.CartItem) error {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.CourtID)
	}
	return r.LockCourts(ctx, ids...)
}
