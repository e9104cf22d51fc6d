// Package engine assembles the use cases over a SQLite database and a fake
// clock for scenario tests.
package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/businesshours"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/infra/lock"
	"github.com/courtbook/slot-engine/internal/infra/proofstore"
	"github.com/courtbook/slot-engine/internal/infra/repository"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/testutil"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/booking"
	"github.com/courtbook/slot-engine/internal/usecase/cart"
	"github.com/courtbook/slot-engine/internal/usecase/reconcile"
	"github.com/courtbook/slot-engine/internal/usecase/waitlist"
)

const (
	StaffID   uint = 900
	ProofRef       = "proofs/receipt.png"
	GraceTime      = 15 * time.Minute
)

// Start is Monday 2026-03-02 10:00 UTC, inside office hours.
var Start = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// FakeClock is the part of clockwork's fake clock the tests drive.
type FakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

type Engine struct {
	DB     *gorm.DB
	Repo   *repository.GormRepository
	Clock  FakeClock
	Hours  *businesshours.Calculator
	Events *events.Recorder
	Locker *lock.LocalLocker

	Checker *availability.Checker
	Manager *waitlist.Manager

	Availability *availability.GetAvailability
	AddItems     *cart.AddItems
	GetCart      *cart.GetCart
	RemoveItem   *cart.RemoveItem
	Checkout     *cart.Checkout
	AttachProof  *cart.AttachProof
	CartReview   *cart.Review

	ListEntries *waitlist.ListEntries
	CancelEntry *waitlist.CancelEntry
	ExpireEntry *waitlist.ExpireEntry

	Pay           *booking.PayBooking
	CancelBooking *booking.CancelBooking
	BookingReview *booking.Review
	Attendance    *booking.Attendance

	Sweeper *reconcile.Sweeper

	Courts []models.Court
}

// New builds an engine with three active courts, Monday to Saturday office
// hours 08:00-17:00 UTC and a 15 minute grace window.
func New(t *testing.T) *Engine {
	t.Helper()

	clock := clockwork.NewFakeClockAt(Start)
	gdb := testutil.NewTestDB(t, clock)

	hours, err := businesshours.New(time.UTC, "08:00", "17:00", []time.Weekday{time.Sunday}, nil)
	require.NoError(t, err)

	e := &Engine{
		DB:     gdb,
		Repo:   repository.NewGormRepository(gdb),
		Clock:  clock,
		Hours:  hours,
		Events: &events.Recorder{},
		Locker: lock.NewLocalLocker(),
	}

	policy := slot.Policy{HoldGraceWindow: GraceTime, StaffHoldsBlock: true}
	e.Checker = availability.NewChecker(policy, clock)
	e.Manager = waitlist.NewManager(e.Checker, hours, clock)

	notifier := events.NewNotifier(e.Events)
	proofs := proofstore.AcceptAll{}

	e.Availability = availability.NewGetAvailability(e.Repo, e.Checker, 60)
	e.AddItems = cart.NewAddItems(e.Repo, e.Checker, e.Manager, nil, clock)
	e.GetCart = cart.NewGetCart(e.Repo)
	e.RemoveItem = cart.NewRemoveItem(e.Repo, nil)
	e.Checkout = cart.NewCheckout(e.Repo, e.Checker, proofs, nil, clock)
	e.AttachProof = cart.NewAttachProof(e.Repo, proofs, nil)
	e.CartReview = cart.NewReview(e.Repo, e.Checker, e.Manager, notifier, nil, clock)

	e.ListEntries = waitlist.NewListEntries(e.Repo)
	e.CancelEntry = waitlist.NewCancelEntry(e.Repo, e.Manager, notifier, nil)
	e.ExpireEntry = waitlist.NewExpireEntry(e.Repo, e.Manager, notifier, nil)

	e.Pay = booking.NewPayBooking(e.Repo, e.Manager, proofs, notifier, nil, clock)
	e.CancelBooking = booking.NewCancelBooking(e.Repo, e.Manager, notifier, nil, clock)
	e.BookingReview = booking.NewReview(e.Repo, e.Checker, e.Manager, notifier, nil, clock)
	e.Attendance = booking.NewAttendance(e.Repo, nil, clock)

	e.Sweeper = reconcile.NewSweeper(
		e.Repo, e.Manager, e.ExpireEntry, notifier, nil, e.Locker, clock,
		reconcile.Options{Lookback: 72 * time.Hour, PendingTTL: 24 * time.Hour},
	)

	for _, name := range []string{"Court 1", "Court 2", "Court 3"} {
		e.Courts = append(e.Courts, testutil.SeedCourt(t, gdb, name))
	}
	return e
}

// Item is a cart item on the given court; price is fixed at 100.
func Item(courtID uint, date, start, end string) cart.ItemInput {
	return cart.ItemInput{CourtID: courtID, Date: date, StartTime: start, EndTime: end, Price: 100}
}

// Add puts one item in userID's cart and returns its outcome.
func (e *Engine) Add(t *testing.T, userID uint, item cart.ItemInput) cart.ItemResult {
	t.Helper()

	out, err := e.AddItems.Execute(context.Background(), cart.AddItemsInput{
		UserID: userID,
		Items:  []cart.ItemInput{item},
	})
	require.NoError(t, err)

	switch {
	case len(out.Added) == 1:
		return out.Added[0]
	case len(out.Waitlisted) == 1:
		return out.Waitlisted[0]
	}
	require.Len(t, out.Rejected, 1)
	return out.Rejected[0]
}

// CheckoutCart adds the items and checks the cart out with a proof.
func (e *Engine) CheckoutCart(t *testing.T, userID uint, items ...cart.ItemInput) *cart.CheckoutOutput {
	t.Helper()

	out, err := e.AddItems.Execute(context.Background(), cart.AddItemsInput{UserID: userID, Items: items})
	require.NoError(t, err)
	require.Len(t, out.Added, len(items), "rejected: %+v waitlisted: %+v", out.Rejected, out.Waitlisted)

	res, err := e.Checkout.Execute(context.Background(), cart.CheckoutInput{
		ActorID:       userID,
		TransactionID: *out.TransactionID,
		ProofRef:      ProofRef,
	})
	require.NoError(t, err)
	return res
}

// Hold checks a single slot out for userID and lets the grace window pass,
// leaving the slot soft held.
func (e *Engine) Hold(t *testing.T, userID uint, item cart.ItemInput) *cart.CheckoutOutput {
	t.Helper()

	out := e.CheckoutCart(t, userID, item)
	e.Clock.Advance(GraceTime + time.Minute)
	return out
}

func (e *Engine) Transaction(t *testing.T, id uint) *models.CartTransaction {
	t.Helper()
	tx, err := e.Repo.GetTransaction(context.Background(), id)
	require.NoError(t, err)
	return tx
}

func (e *Engine) Booking(t *testing.T, id uint) *models.Booking {
	t.Helper()
	b, err := e.Repo.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (e *Engine) Entry(t *testing.T, id uint) *models.WaitlistEntry {
	t.Helper()
	w, err := e.Repo.GetWaitlistEntry(context.Background(), id)
	require.NoError(t, err)
	return w
}

func (e *Engine) BookingsOf(t *testing.T, txID uint) []models.Booking {
	t.Helper()
	bs, err := e.Repo.ListBookingsByTransaction(context.Background(), txID)
	require.NoError(t, err)
	return bs
}

// NotifiedCount counts notified entries for one slot.
func (e *Engine) NotifiedCount(t *testing.T, courtID uint, rng slot.TimeRange) int {
	t.Helper()
	entries, err := e.Repo.ListActiveWaitlist(context.Background(), courtID, rng)
	require.NoError(t, err)
	n := 0
	for _, w := range entries {
		if w.Status == domain.WaitlistNotified {
			n++
		}
	}
	return n
}
