package repository

import (
	"context"

	"github.com/courtbook/slot-engine/internal/models"
)

// --------------------------------------------------
// Booking
// --------------------------------------------------

func (r *GormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *GormRepository) GetBooking(
	ctx context.Context,
	id uint,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err, "booking_not_found")
	}
	return &b, nil
}

func (r *GormRepository) UpdateBooking(
	ctx context.Context,
	b *models.Booking,
) error {
	return r.db.WithContext(ctx).Save(b).Error
}

func (r *GormRepository) ListBookingsOnDates(
	ctx context.Context,
	courtID uint,
	dates []string,
) ([]models.Booking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where("court_id = ? AND date IN ?", courtID, dates).
		Order("date ASC, start_time ASC, id ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormRepository) ListBookingsByTransaction(
	ctx context.Context,
	txID uint,
) ([]models.Booking, error) {

	var bookings []models.Booking
	if err := r.db.WithContext(ctx).
		Where("cart_transaction_id = ?", txID).
		Order("id ASC").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *GormRepository) CompareAndSetBooking(
	ctx context.Context,
	id uint,
	status string,
	paymentStatus string,
	fields map[string]any,
) (bool, error) {

	q := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, status)
	if paymentStatus != "" {
		q = q.Where("payment_status = ?", paymentStatus)
	}

	res := q.Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepository) UpdateBookingsByTransaction(
	ctx context.Context,
	txID uint,
	keep []string,
	fields map[string]any,
) ([]uint, error) {

	var ids []uint
	q := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("cart_transaction_id = ?", txID)
	if len(keep) > 0 {
		q = q.Where("status NOT IN ?", keep)
	}
	if err := q.Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id IN ?", ids).
		Updates(fields).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
