package httperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

type BusinessError struct {
	Code string
}

func (e BusinessError) Error() string {
	return e.Code
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// ======================================================
// Slot errors
// ======================================================

// ConflictError means the requested slot is blocked at evaluation time.
type ConflictError struct {
	Code              string
	BlockingBookingID *uint
}

func (e ConflictError) Error() string {
	if e.Code == "" {
		return "slot_conflict"
	}
	return e.Code
}

func ErrConflict(blockingBookingID *uint) error {
	return ConflictError{Code: "slot_conflict", BlockingBookingID: blockingBookingID}
}

func IsConflict(err error) bool {
	var ce ConflictError
	return errors.As(err, &ce)
}

// StaleItem identifies one cart item that regressed between add and checkout.
type StaleItem struct {
	CartItemID uint   `json:"cart_item_id"`
	CourtID    uint   `json:"court_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// StaleStateError aborts a whole checkout.
type StaleStateError struct {
	Items []StaleItem
}

func (e StaleStateError) Error() string {
	ids := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		ids = append(ids, fmt.Sprint(it.CartItemID))
	}
	return "stale_state: items " + strings.Join(ids, ",") + " no longer available"
}

func AsStale(err error) (StaleStateError, bool) {
	var se StaleStateError
	ok := errors.As(err, &se)
	return se, ok
}

// DeadlineExpiredError is returned when a waitlist payment arrives after
// the entry's deadline.
type DeadlineExpiredError struct {
	EntryID uint
}

func (e DeadlineExpiredError) Error() string {
	return fmt.Sprintf("deadline_expired: waitlist entry %d", e.EntryID)
}

func IsDeadlineExpired(err error) bool {
	var de DeadlineExpiredError
	return errors.As(err, &de)
}

// ======================================================
// Database conflicts
// ======================================================

const (
	pgUniqueViolation      = "23505"
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsExclusionConflict reports postgres errors that mean a concurrent writer
// won the slot: constraint violations and aborted serializable transactions.
func IsExclusionConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgUniqueViolation, pgExclusionViolation, pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}
