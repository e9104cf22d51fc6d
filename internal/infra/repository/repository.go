package repository

import (
	"context"
	"errors"
	"slices"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/httperr"
	"github.com/courtbook/slot-engine/internal/models"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// --------------------------------------------------
// Transaction
// --------------------------------------------------

func (r *GormRepository) Transaction(
	ctx context.Context,
	fn func(repo domain.Repository) error,
) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

// --------------------------------------------------
// Court
// --------------------------------------------------

func (r *GormRepository) GetCourt(
	ctx context.Context,
	id uint,
) (*models.Court, error) {

	var court models.Court
	if err := r.db.WithContext(ctx).First(&court, id).Error; err != nil {
		return nil, notFound(err, "court_not_found")
	}
	return &court, nil
}

// LockCourts serializes writers per court: every read-then-write on a slot
// takes the court row first, so phantom bookings cannot slip in between the
// availability check and the insert.
func (r *GormRepository) LockCourts(
	ctx context.Context,
	ids ...uint,
) error {

	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	for _, id := range ordered {
		var courts []models.Court
		res := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Find(&courts)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httperr.ErrBusiness("court_not_found")
		}
	}
	return nil
}

func notFound(err error, code string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.ErrBusiness(code)
	}
	return err
}

// Compile-time check
var _ domain.Repository = (*GormRepository)(nil)
