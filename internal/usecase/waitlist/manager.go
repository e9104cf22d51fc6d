package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/businesshours"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
	"github.com/courtbook/slot-engine/internal/usecase/availability"
	"github.com/courtbook/slot-engine/internal/usecase/cascade"
)

// Manager holds the waitlist state machine. Every method takes the
// repository of the caller's database transaction and locks the court row
// itself before reading the queue.
type Manager struct {
	checker *availability.Checker
	hours   *businesshours.Calculator
	clock   clockwork.Clock
}

func NewManager(
	checker *availability.Checker,
	hours *businesshours.Calculator,
	clock clockwork.Clock,
) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Manager{checker: checker, hours: hours, clock: clock}
}

// Promotion describes one entry moved to notified and its new booking.
type Promotion struct {
	Entry   models.WaitlistEntry `json:"entry"`
	Booking models.Booking       `json:"booking"`
}

func (p Promotion) Event(now time.Time) events.Event {
	return events.SlotAvailable(&p.Entry, p.Booking.ID, now)
}

// PromotionEvents converts promotions into post-commit notifications.
func PromotionEvents(promos []Promotion, now time.Time) []events.Event {
	out := make([]events.Event, 0, len(promos))
	for _, p := range promos {
		out = append(out, p.Event(now))
	}
	return out
}

// ======================================================
// ENQUEUE
// ======================================================

type EnqueueInput struct {
	UserID            uint
	ByStaff           bool
	CourtID           uint
	Range             slot.TimeRange
	Price             float64
	BlockingBookingID *uint
}

// Enqueue appends the user to the slot's queue and keeps the requested
// reservation as a cart item under a dedicated hold transaction.
func (m *Manager) Enqueue(
	ctx context.Context,
	repo domain.Repository,
	in EnqueueInput,
) (*models.WaitlistEntry, *models.CartItem, error) {

	if err := repo.LockCourts(ctx, in.CourtID); err != nil {
		return nil, nil, err
	}

	active, err := repo.ListActiveWaitlist(ctx, in.CourtID, in.Range)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range active {
		if e.UserID == in.UserID {
			return nil, nil, httperr.ErrBusiness("already_waitlisted")
		}
	}

	maxPos, err := repo.MaxWaitlistPosition(ctx, in.CourtID, in.Range)
	if err != nil {
		return nil, nil, err
	}

	entry := &models.WaitlistEntry{
		UserID:           in.UserID,
		CourtID:          in.CourtID,
		Date:             in.Range.Date,
		StartTime:        in.Range.Start,
		EndTime:          in.Range.End,
		Status:           domain.WaitlistPending,
		Price:            in.Price,
		Position:         maxPos + 1,
		PendingBookingID: in.BlockingBookingID,
	}
	if err := repo.CreateWaitlistEntry(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("create waitlist entry: %w", err)
	}

	hold := &models.CartTransaction{
		UserID:          in.UserID,
		CreatedByStaff:  in.ByStaff,
		TotalPrice:      in.Price,
		Status:          domain.TxPending,
		ApprovalStatus:  domain.ApprovalPending,
		PaymentStatus:   domain.PaymentUnpaid,
		WaitlistEntryID: &entry.ID,
	}
	if err := repo.CreateTransaction(ctx, hold); err != nil {
		return nil, nil, fmt.Errorf("create waitlist hold: %w", err)
	}

	item := &models.CartItem{
		CartTransactionID: hold.ID,
		UserID:            in.UserID,
		CourtID:           in.CourtID,
		Date:              in.Range.Date,
		StartTime:         in.Range.Start,
		EndTime:           in.Range.End,
		Price:             in.Price,
		Status:            domain.ItemPending,
		WaitlistEntryID:   &entry.ID,
	}
	if err := repo.CreateCartItem(ctx, item); err != nil {
		return nil, nil, fmt.Errorf("create waitlist item: %w", err)
	}

	return entry, item, nil
}

// ======================================================
// PROMOTE NEXT
// ======================================================

// PromoteNext hands a freed slot to the first pending entry of the exact
// range's queue. It does nothing while another entry is notified; a slot
// that is still held only re-points the queue at the current holder.
func (m *Manager) PromoteNext(
	ctx context.Context,
	repo domain.Repository,
	courtID uint,
	rng slot.TimeRange,
) (*Promotion, error) {

	if err := repo.LockCourts(ctx, courtID); err != nil {
		return nil, err
	}

	entries, err := repo.ListActiveWaitlist(ctx, courtID, rng)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	for _, e := range entries {
		if e.Status == domain.WaitlistNotified {
			return nil, nil
		}
	}

	cl, err := m.checker.Classify(ctx, repo, courtID, rng, availability.Exclusion{})
	if err != nil {
		return nil, err
	}

	if cl.Outcome != slot.Available {
		return nil, m.relink(ctx, repo, entries, cl.BlockingBookingID)
	}

	now := m.clock.Now()

	for i := range entries {
		next := entries[i]

		start, _, err := next.Range().Bounds(m.hours.Location)
		if err != nil {
			return nil, err
		}
		if !start.After(now) {
			if err := m.expirePending(ctx, repo, &next, now, "slot_started"); err != nil {
				return nil, err
			}
			continue
		}

		return m.promote(ctx, repo, &next, now)
	}
	return nil, nil
}

// PromoteReleased is called after a booking over rng stops holding the
// court. Every queue whose range intersects rng gets a PromoteNext, oldest
// queue first. A queue that overlaps a notified entry, or a promotion made
// earlier in the same call, keeps waiting.
func (m *Manager) PromoteReleased(
	ctx context.Context,
	repo domain.Repository,
	courtID uint,
	rng slot.TimeRange,
) ([]Promotion, error) {

	if err := repo.LockCourts(ctx, courtID); err != nil {
		return nil, err
	}

	entries, err := repo.ListActiveWaitlistOnDates(ctx, courtID, rng.SearchDates())
	if err != nil {
		return nil, err
	}

	var (
		claimed []slot.TimeRange
		queues  []slot.TimeRange
		seen    = map[string]bool{}
	)
	for _, e := range entries {
		r := e.Range()
		if !rng.Overlaps(r) {
			continue
		}
		if e.Status == domain.WaitlistNotified {
			claimed = append(claimed, r)
			continue
		}
		if !seen[r.Key()] {
			seen[r.Key()] = true
			queues = append(queues, r)
		}
	}

	var out []Promotion
	for _, q := range queues {
		if overlapsAny(q, claimed) {
			continue
		}
		p, err := m.PromoteNext(ctx, repo, courtID, q)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out = append(out, *p)
			claimed = append(claimed, q)
		}
	}
	return out, nil
}

func overlapsAny(r slot.TimeRange, others []slot.TimeRange) bool {
	for _, o := range others {
		if r.Overlaps(o) {
			return true
		}
	}
	return false
}

func (m *Manager) promote(
	ctx context.Context,
	repo domain.Repository,
	entry *models.WaitlistEntry,
	now time.Time,
) (*Promotion, error) {

	deadline := m.hours.NextBusinessDeadline(now)

	b := &models.Booking{
		CourtID:         entry.CourtID,
		UserID:          entry.UserID,
		Date:            entry.Date,
		StartTime:       entry.StartTime,
		EndTime:         entry.EndTime,
		Price:           entry.Price,
		Status:          string(domain.StatusPending),
		PaymentStatus:   domain.PaymentUnpaid,
		WaitlistEntryID: &entry.ID,
	}
	if err := repo.CreateBooking(ctx, b); err != nil {
		return nil, fmt.Errorf("create promoted booking: %w", err)
	}

	ok, err := repo.CompareAndSetWaitlist(ctx, entry.ID, domain.WaitlistPending, map[string]any{
		"status":              domain.WaitlistNotified,
		"notified_at":         now,
		"expires_at":          deadline,
		"promoted_booking_id": b.ID,
		"pending_booking_id":  nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("promote waitlist entry %d: %w", entry.ID, httperr.ErrBusiness("invalid_state"))
	}

	if err := m.releaseHold(ctx, repo, entry.ID, now, "waitlist_promoted"); err != nil {
		return nil, err
	}

	entry.Status = domain.WaitlistNotified
	entry.NotifiedAt = &now
	entry.ExpiresAt = &deadline
	entry.PromotedBookingID = &b.ID
	entry.PendingBookingID = nil

	log.Ctx(ctx).Info().
		Uint("entry_id", entry.ID).
		Uint("booking_id", b.ID).
		Uint("court_id", entry.CourtID).
		Str("range", entry.Range().Key()).
		Time("expires_at", deadline).
		Msg("waitlist entry promoted")

	return &Promotion{Entry: *entry, Booking: *b}, nil
}

func (m *Manager) relink(
	ctx context.Context,
	repo domain.Repository,
	entries []models.WaitlistEntry,
	holder *uint,
) error {
	if holder == nil {
		return nil
	}
	for _, e := range entries {
		if e.PendingBookingID != nil && *e.PendingBookingID == *holder {
			continue
		}
		if _, err := repo.CompareAndSetWaitlist(ctx, e.ID, domain.WaitlistPending, map[string]any{
			"pending_booking_id": *holder,
		}); err != nil {
			return err
		}
	}
	return nil
}

// releaseHold cancels the hold transaction created at enqueue time and drops
// its references to the entry, so only the entry's booking claims the slot.
func (m *Manager) releaseHold(
	ctx context.Context,
	repo domain.Repository,
	entryID uint,
	now time.Time,
	reason string,
) error {

	hold, err := repo.FindWaitlistHoldTransaction(ctx, entryID)
	if err != nil || hold == nil {
		return err
	}

	hold.WaitlistEntryID = nil
	if _, err := cascade.Apply(ctx, repo, hold, domain.TargetCancelled, cascade.Meta{
		Now:    now,
		Reason: reason,
	}); err != nil {
		return err
	}

	_, err = repo.UpdateItemsByTransaction(ctx, hold.ID, nil, map[string]any{
		"waitlist_entry_id": nil,
	})
	return err
}

func (m *Manager) expirePending(
	ctx context.Context,
	repo domain.Repository,
	entry *models.WaitlistEntry,
	now time.Time,
	reason string,
) error {

	ok, err := repo.CompareAndSetWaitlist(ctx, entry.ID, domain.WaitlistPending, map[string]any{
		"status":             domain.WaitlistExpired,
		"pending_booking_id": nil,
	})
	if err != nil || !ok {
		return err
	}
	entry.Status = domain.WaitlistExpired

	log.Ctx(ctx).Info().
		Uint("entry_id", entry.ID).
		Str("reason", reason).
		Msg("pending waitlist entry expired")

	return m.releaseHold(ctx, repo, entry.ID, now, reason)
}

// ======================================================
// EXPIRE IF OVERDUE
// ======================================================

// ExpireIfOverdue ends a notified entry whose deadline passed. The promoted
// booking is rejected only while it is still unpaid: a payment that commits
// first wins and the entry stays notified. Repeated calls are no-ops.
func (m *Manager) ExpireIfOverdue(
	ctx context.Context,
	repo domain.Repository,
	entryID uint,
) (bool, []Promotion, error) {

	entry, err := repo.GetWaitlistEntry(ctx, entryID)
	if err != nil {
		return false, nil, err
	}
	if err := repo.LockCourts(ctx, entry.CourtID); err != nil {
		return false, nil, err
	}
	// re-read under the court lock
	entry, err = repo.GetWaitlistEntry(ctx, entryID)
	if err != nil {
		return false, nil, err
	}

	now := m.clock.Now()
	if entry.Status != domain.WaitlistNotified {
		return false, nil, nil
	}
	if entry.ExpiresAt == nil || !now.After(*entry.ExpiresAt) {
		return false, nil, nil
	}

	if entry.PromotedBookingID != nil {
		rejected, err := repo.CompareAndSetBooking(ctx, *entry.PromotedBookingID,
			string(domain.StatusPending), domain.PaymentUnpaid,
			map[string]any{
				"status":           string(domain.StatusRejected),
				"rejection_reason": "waitlist_deadline_expired",
				"reviewed_at":      now,
			})
		if err != nil {
			return false, nil, err
		}
		if !rejected {
			b, err := repo.GetBooking(ctx, *entry.PromotedBookingID)
			if err != nil {
				return false, nil, err
			}
			// paid or approved: the user made it in time
			if b.Status != string(domain.StatusRejected) && b.Status != string(domain.StatusCancelled) {
				return false, nil, nil
			}
		}
	}

	ok, err := repo.CompareAndSetWaitlist(ctx, entry.ID, domain.WaitlistNotified, map[string]any{
		"status":             domain.WaitlistExpired,
		"pending_booking_id": nil,
	})
	if err != nil || !ok {
		return false, nil, err
	}

	log.Ctx(ctx).Info().
		Uint("entry_id", entry.ID).
		Uint("court_id", entry.CourtID).
		Str("range", entry.Range().Key()).
		Msg("waitlist entry expired")

	promos, err := m.PromoteReleased(ctx, repo, entry.CourtID, entry.Range())
	if err != nil {
		return true, nil, err
	}
	return true, promos, nil
}

// ======================================================
// CONVERT / WITHDRAW
// ======================================================

// ConvertOnApproval closes a notified entry once its booking is approved.
func (m *Manager) ConvertOnApproval(
	ctx context.Context,
	repo domain.Repository,
	entryID uint,
) (bool, error) {
	return repo.CompareAndSetWaitlist(ctx, entryID, domain.WaitlistNotified, map[string]any{
		"status":             domain.WaitlistConverted,
		"pending_booking_id": nil,
	})
}

// Withdraw cancels an active entry. A notified entry gives its booking back
// and the slot goes to the next in line.
func (m *Manager) Withdraw(
	ctx context.Context,
	repo domain.Repository,
	entry *models.WaitlistEntry,
) ([]Promotion, error) {

	if err := repo.LockCourts(ctx, entry.CourtID); err != nil {
		return nil, err
	}
	now := m.clock.Now()

	switch entry.Status {
	case domain.WaitlistPending:
		ok, err := repo.CompareAndSetWaitlist(ctx, entry.ID, domain.WaitlistPending, map[string]any{
			"status":             domain.WaitlistCancelled,
			"pending_booking_id": nil,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, httperr.ErrBusiness("invalid_state")
		}
		entry.Status = domain.WaitlistCancelled
		return nil, m.releaseHold(ctx, repo, entry.ID, now, "waitlist_cancelled")

	case domain.WaitlistNotified:
		ok, err := repo.CompareAndSetWaitlist(ctx, entry.ID, domain.WaitlistNotified, map[string]any{
			"status":             domain.WaitlistCancelled,
			"pending_booking_id": nil,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, httperr.ErrBusiness("invalid_state")
		}
		entry.Status = domain.WaitlistCancelled

		if entry.PromotedBookingID != nil {
			if _, err := repo.CompareAndSetBooking(ctx, *entry.PromotedBookingID,
				string(domain.StatusPending), "",
				map[string]any{
					"status":       string(domain.StatusCancelled),
					"cancelled_at": now,
				}); err != nil {
				return nil, err
			}
		}
		return m.PromoteReleased(ctx, repo, entry.CourtID, entry.Range())
	}

	return nil, httperr.ErrBusiness("invalid_state")
}

// ExpireStarted closes a pending entry whose slot has already begun.
func (m *Manager) ExpireStarted(
	ctx context.Context,
	repo domain.Repository,
	entryID uint,
) (bool, error) {

	entry, err := repo.GetWaitlistEntry(ctx, entryID)
	if err != nil {
		return false, err
	}
	if err := repo.LockCourts(ctx, entry.CourtID); err != nil {
		return false, err
	}
	entry, err = repo.GetWaitlistEntry(ctx, entryID)
	if err != nil {
		return false, err
	}
	if entry.Status != domain.WaitlistPending {
		return false, nil
	}

	now := m.clock.Now()
	start, _, err := entry.Range().Bounds(m.hours.Location)
	if err != nil {
		return false, err
	}
	if start.After(now) {
		return false, nil
	}

	if err := m.expirePending(ctx, repo, entry, now, "slot_started"); err != nil {
		return false, err
	}
	return entry.Status == domain.WaitlistExpired, nil
}

func (m *Manager) Now() time.Time {
	return m.clock.Now()
}

func (m *Manager) Location() *time.Location {
	return m.hours.Location
}
