package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/models"
)

// --------------------------------------------------
// Cart transaction
// --------------------------------------------------

func (r *GormRepository) FindPendingTransaction(
	ctx context.Context,
	userID uint,
) (*models.CartTransaction, error) {

	var tx models.CartTransaction
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where(
			"user_id = ? AND status = ? AND waitlist_entry_id IS NULL",
			userID, domain.TxPending,
		).
		Order("id ASC").
		First(&tx).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *GormRepository) FindWaitlistHoldTransaction(
	ctx context.Context,
	entryID uint,
) (*models.CartTransaction, error) {

	var tx models.CartTransaction
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("waitlist_entry_id = ?", entryID).
		First(&tx).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *GormRepository) CreateTransaction(
	ctx context.Context,
	tx *models.CartTransaction,
) error {
	return r.db.WithContext(ctx).Omit("Items").Create(tx).Error
}

func (r *GormRepository) GetTransaction(
	ctx context.Context,
	id uint,
) (*models.CartTransaction, error) {

	var tx models.CartTransaction
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&tx, id).Error; err != nil {
		return nil, notFound(err, "transaction_not_found")
	}
	return &tx, nil
}

func (r *GormRepository) LockTransaction(
	ctx context.Context,
	id uint,
) (*models.CartTransaction, error) {

	var tx models.CartTransaction
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&tx).Error; err != nil {
		return nil, notFound(err, "transaction_not_found")
	}

	if err := r.db.WithContext(ctx).
		Where("cart_transaction_id = ?", id).
		Order("id ASC").
		Find(&tx.Items).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *GormRepository) UpdateTransaction(
	ctx context.Context,
	tx *models.CartTransaction,
) error {
	return r.db.WithContext(ctx).Omit("Items").Save(tx).Error
}

// --------------------------------------------------
// Cart item
// --------------------------------------------------

func (r *GormRepository) CreateCartItem(
	ctx context.Context,
	item *models.CartItem,
) error {
	return r.db.WithContext(ctx).Omit("Transaction").Create(item).Error
}

func (r *GormRepository) DeleteCartItem(
	ctx context.Context,
	id uint,
) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, id).Error
}

func (r *GormRepository) ListHeldCartItemsOnDates(
	ctx context.Context,
	courtID uint,
	dates []string,
) ([]models.CartItem, error) {

	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("Transaction").
		Where(
			"court_id = ? AND date IN ? AND status IN ?",
			courtID, dates, []string{domain.ItemCompleted, domain.ItemApproved},
		).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepository) UpdateItemsByTransaction(
	ctx context.Context,
	txID uint,
	keep []string,
	fields map[string]any,
) (int64, error) {

	q := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_transaction_id = ?", txID)
	if len(keep) > 0 {
		q = q.Where("status NOT IN ?", keep)
	}

	res := q.Updates(fields)
	return res.RowsAffected, res.Error
}

// --------------------------------------------------
// Sweeper queries
// --------------------------------------------------

func (r *GormRepository) ListSettledTransactionsSince(
	ctx context.Context,
	since time.Time,
) ([]models.CartTransaction, error) {

	var txs []models.CartTransaction
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status <> ? AND updated_at >= ?", domain.TxPending, since).
		Order("id ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *GormRepository) ListStalePendingTransactions(
	ctx context.Context,
	before time.Time,
) ([]models.CartTransaction, error) {

	var txs []models.CartTransaction
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where(
			"status = ? AND payment_status = ? AND waitlist_entry_id IS NULL AND updated_at < ?",
			domain.TxPending, domain.PaymentUnpaid, before,
		).
		Order("id ASC").
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
