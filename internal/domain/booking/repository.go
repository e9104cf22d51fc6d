package booking

import (
	"context"
	"time"

	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/models"
)

type Repository interface {
	// Transaction runs fn against a repository bound to one database
	// transaction. Returning an error rolls everything back.
	Transaction(
		ctx context.Context,
		fn func(repo Repository) error,
	) error

	// -------- Court --------
	GetCourt(
		ctx context.Context,
		id uint,
	) (*models.Court, error)

	// LockCourts takes row locks on the given courts in ascending id order.
	LockCourts(
		ctx context.Context,
		ids ...uint,
	) error

	// -------- Booking --------
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	GetBooking(
		ctx context.Context,
		id uint,
	) (*models.Booking, error)

	UpdateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	ListBookingsOnDates(
		ctx context.Context,
		courtID uint,
		dates []string,
	) ([]models.Booking, error)

	ListBookingsByTransaction(
		ctx context.Context,
		txID uint,
	) ([]models.Booking, error)

	// CompareAndSetBooking applies fields only while the booking still has
	// the expected status and payment status.
	CompareAndSetBooking(
		ctx context.Context,
		id uint,
		status string,
		paymentStatus string,
		fields map[string]any,
	) (bool, error)

	// UpdateBookingsByTransaction updates every booking of txID whose status
	// is not in keep and returns the ids it touched.
	UpdateBookingsByTransaction(
		ctx context.Context,
		txID uint,
		keep []string,
		fields map[string]any,
	) ([]uint, error)

	// -------- Cart --------
	FindPendingTransaction(
		ctx context.Context,
		userID uint,
	) (*models.CartTransaction, error)

	FindWaitlistHoldTransaction(
		ctx context.Context,
		entryID uint,
	) (*models.CartTransaction, error)

	CreateTransaction(
		ctx context.Context,
		tx *models.CartTransaction,
	) error

	GetTransaction(
		ctx context.Context,
		id uint,
	) (*models.CartTransaction, error)

	// LockTransaction reads the transaction and its items under a row lock.
	LockTransaction(
		ctx context.Context,
		id uint,
	) (*models.CartTransaction, error)

	UpdateTransaction(
		ctx context.Context,
		tx *models.CartTransaction,
	) error

	CreateCartItem(
		ctx context.Context,
		item *models.CartItem,
	) error

	DeleteCartItem(
		ctx context.Context,
		id uint,
	) error

	// ListHeldCartItemsOnDates returns checked-out or approved items with
	// their transaction loaded.
	ListHeldCartItemsOnDates(
		ctx context.Context,
		courtID uint,
		dates []string,
	) ([]models.CartItem, error)

	UpdateItemsByTransaction(
		ctx context.Context,
		txID uint,
		keep []string,
		fields map[string]any,
	) (int64, error)

	ListSettledTransactionsSince(
		ctx context.Context,
		since time.Time,
	) ([]models.CartTransaction, error)

	ListStalePendingTransactions(
		ctx context.Context,
		before time.Time,
	) ([]models.CartTransaction, error)

	// -------- Waitlist --------
	CreateWaitlistEntry(
		ctx context.Context,
		e *models.WaitlistEntry,
	) error

	GetWaitlistEntry(
		ctx context.Context,
		id uint,
	) (*models.WaitlistEntry, error)

	UpdateWaitlistEntry(
		ctx context.Context,
		e *models.WaitlistEntry,
	) error

	MaxWaitlistPosition(
		ctx context.Context,
		courtID uint,
		rng slot.TimeRange,
	) (int, error)

	// ListActiveWaitlist returns pending and notified entries for the exact
	// slot ordered by position.
	ListActiveWaitlist(
		ctx context.Context,
		courtID uint,
		rng slot.TimeRange,
	) ([]models.WaitlistEntry, error)

	// ListActiveWaitlistOnDates returns pending and notified entries of any
	// slot on the given dates, oldest first.
	ListActiveWaitlistOnDates(
		ctx context.Context,
		courtID uint,
		dates []string,
	) ([]models.WaitlistEntry, error)

	CompareAndSetWaitlist(
		ctx context.Context,
		id uint,
		status string,
		fields map[string]any,
	) (bool, error)

	ListOverdueWaitlist(
		ctx context.Context,
		now time.Time,
	) ([]models.WaitlistEntry, error)

	ListPendingWaitlistUpTo(
		ctx context.Context,
		date string,
	) ([]models.WaitlistEntry, error)

	ListPendingWaitlistFrom(
		ctx context.Context,
		date string,
	) ([]models.WaitlistEntry, error)

	ListWaitlistForUser(
		ctx context.Context,
		userID uint,
	) ([]models.WaitlistEntry, error)
}
