package waitlist

import (
	"context"

	"github.com/courtbook/slot-engine/internal/audit"
	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/events"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
)

type CancelEntry struct {
	repo     domain.Repository
	manager  *Manager
	notifier *events.Notifier
	audit    *audit.Dispatcher
}

func NewCancelEntry(
	repo domain.Repository,
	manager *Manager,
	notifier *events.Notifier,
	audit *audit.Dispatcher,
) *CancelEntry {
	return &CancelEntry{
		repo:     repo,
		manager:  manager,
		notifier: notifier,
		audit:    audit,
	}
}

func (uc *CancelEntry) Execute(
	ctx context.Context,
	actorID uint,
	isStaff bool,
	entryID uint,
) (*models.WaitlistEntry, error) {

	var (
		entry  *models.WaitlistEntry
		promos []Promotion
	)

	err := uc.repo.Transaction(ctx, func(r domain.Repository) error {
		e, err := r.GetWaitlistEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if e.UserID != actorID && !isStaff {
			return httperr.ErrBusiness("waitlist_entry_not_found")
		}

		promos, err = uc.manager.Withdraw(ctx, r, e)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifier.Emit(ctx, PromotionEvents(promos, uc.manager.Now())...)
	uc.audit.Dispatch(audit.Event{
		ActorID:  &actorID,
		Action:   "waitlist_cancelled",
		Entity:   "waitlist_entry",
		EntityID: &entry.ID,
	})
	return entry, nil
}
