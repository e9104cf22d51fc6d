package waitlist

import (
	"context"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/models"
)

type ListEntries struct {
	repo domain.Repository
}

func NewListEntries(repo domain.Repository) *ListEntries {
	return &ListEntries{repo: repo}
}

func (uc *ListEntries) Execute(ctx context.Context, userID uint) ([]models.WaitlistEntry, error) {
	entries, err := uc.repo.ListWaitlistForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.WaitlistEntry{}
	}
	return entries, nil
}
