package repository

import (
	"context"
	"time"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/models"
)

// --------------------------------------------------
// Waitlist
// --------------------------------------------------

func (r *GormRepository) CreateWaitlistEntry(
	ctx context.Context,
	e *models.WaitlistEntry,
) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *GormRepository) GetWaitlistEntry(
	ctx context.Context,
	id uint,
) (*models.WaitlistEntry, error) {

	var e models.WaitlistEntry
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFound(err, "waitlist_entry_not_found")
	}
	return &e, nil
}

func (r *GormRepository) UpdateWaitlistEntry(
	ctx context.Context,
	e *models.WaitlistEntry,
) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *GormRepository) MaxWaitlistPosition(
	ctx context.Context,
	courtID uint,
	rng slot.TimeRange,
) (int, error) {

	var maxPos int
	if err := r.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where(
			"court_id = ? AND date = ? AND start_time = ? AND end_time = ? AND status IN ?",
			courtID, rng.Date, rng.Start, rng.End, domain.ActiveWaitlistStatuses,
		).
		Select("COALESCE(MAX(position), 0)").
		Scan(&maxPos).Error; err != nil {
		return 0, err
	}
	return maxPos, nil
}

func (r *GormRepository) ListActiveWaitlist(
	ctx context.Context,
	courtID uint,
	rng slot.TimeRange,
) ([]models.WaitlistEntry, error) {

	var entries []models.WaitlistEntry
	if err := r.db.WithContext(ctx).
		Where(
			"court_id = ? AND date = ? AND start_time = ? AND end_time = ? AND status IN ?",
			courtID, rng.Date, rng.Start, rng.End, domain.ActiveWaitlistStatuses,
		).
		Order("position ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormRepository) ListActiveWaitlistOnDates(
	ctx context.Context,
	courtID uint,
	dates []string,
) ([]models.WaitlistEntry, error) {

	var entries []models.WaitlistEntry
	if err := r.db.WithContext(ctx).
		Where(
			"court_id = ? AND date IN ? AND status IN ?",
			courtID, dates, domain.ActiveWaitlistStatuses,
		).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormRepository) CompareAndSetWaitlist(
	ctx context.Context,
	id uint,
	status string,
	fields map[string]any,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("id = ? AND status = ?", id, status).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) ListOverdueWaitlist(
	ctx context.Context,
	now time.Time,
) ([]models.WaitlistEntry, error) {

	var entries []models.WaitlistEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.WaitlistNotified, now).
		Order("expires_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormRepository) ListPendingWaitlistUpTo(
	ctx context.Context,
	date string,
) ([]models.WaitlistEntry, error) {

	var entries []models.WaitlistEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND date <= ?", domain.WaitlistPending, date).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormRepository) ListPendingWaitlistFrom(
	ctx context.Context,
	date string,
) ([]models.WaitlistEntry, error) {

	var entries []models.WaitlistEntry
	if err := r.db.WithContext(ctx).
		Where("status = ? AND date >= ?", domain.WaitlistPending, date).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *GormRepository) ListWaitlistForUser(
	ctx context.Context,
	userID uint,
) ([]models.WaitlistEntry, error) {

	var entries []models.WaitlistEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
