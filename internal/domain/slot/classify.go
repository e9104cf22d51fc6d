package slot

import "time"

type Outcome string

const (
	Available Outcome = "available"
	SoftHeld  Outcome = "soft_held"
	Blocked   Outcome = "blocked"
)

// HoldState is the availability-relevant reading of a booking or cart item.
type HoldState int

const (
	// HoldInactive covers unpaid pending, rejected and cancelled records.
	HoldInactive HoldState = iota
	// HoldAwaitingApproval is pending with payment attached.
	HoldAwaitingApproval
	// HoldConfirmed is approved, checked in or completed.
	HoldConfirmed
)

// Hold is one existing claim on a court considered by Classify.
type Hold struct {
	BookingID *uint
	Range     TimeRange
	State     HoldState
	ByStaff   bool
	Since     time.Time
}

// Policy carries the tunable parts of the blocking rule.
type Policy struct {
	HoldGraceWindow time.Duration
	StaffHoldsBlock bool
}

type Classification struct {
	Outcome           Outcome `json:"outcome"`
	BlockingBookingID *uint   `json:"blocking_booking_id,omitempty"`
}

// Evaluate applies the blocking rule to a single hold, ignoring its range.
func (p Policy) Evaluate(h Hold, asOf time.Time) Outcome {
	switch h.State {
	case HoldConfirmed:
		return Blocked
	case HoldAwaitingApproval:
		if h.ByStaff && p.StaffHoldsBlock {
			return Blocked
		}
		if asOf.Sub(h.Since) < p.HoldGraceWindow {
			return Blocked
		}
		// a paid claim with no booking behind it cannot be waitlisted against
		if h.BookingID == nil {
			return Blocked
		}
		return SoftHeld
	default:
		return Available
	}
}

// Classify decides the state of candidate given every hold that may touch it.
// blocked wins over soft_held; among soft holds the oldest one is reported.
func Classify(candidate TimeRange, holds []Hold, p Policy, asOf time.Time) Classification {
	var soft *Hold

	for i := range holds {
		h := holds[i]
		if !candidate.Overlaps(h.Range) {
			continue
		}

		switch p.Evaluate(h, asOf) {
		case Blocked:
			return Classification{Outcome: Blocked, BlockingBookingID: h.BookingID}
		case SoftHeld:
			if soft == nil || olderHold(h, *soft) {
				soft = &holds[i]
			}
		}
	}

	if soft != nil {
		return Classification{Outcome: SoftHeld, BlockingBookingID: soft.BookingID}
	}
	return Classification{Outcome: Available}
}

func olderHold(a, b Hold) bool {
	if !a.Since.Equal(b.Since) {
		return a.Since.Before(b.Since)
	}
	if a.BookingID == nil || b.BookingID == nil {
		return false
	}
	return *a.BookingID < *b.BookingID
}
