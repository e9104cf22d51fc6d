package availability

import (
	"context"
	"time"

	domain "github.com/courtbook/slot-engine/internal/domain/booking"
	"github.com/courtbook/slot-engine/internal/domain/slot"
	"github.com/courtbook/slot-engine/internal/httperr"
)

// ======================================================
// INPUT / OUTPUT
// ======================================================

type GetAvailabilityInput struct {
	CourtID uint
	Range   slot.TimeRange
	UserID  uint
}

type SlotView struct {
	slot.TimeRange
	slot.Classification
}

type DaySlotsInput struct {
	CourtID uint
	Date    string
	// From and To are "HH:MM"; empty means the whole day.
	From string
	To   string
}

// ======================================================
// USE CASE
// ======================================================

type GetAvailability struct {
	repo    domain.Repository
	checker *Checker
	step    int
}

func NewGetAvailability(
	repo domain.Repository,
	checker *Checker,
	slotMinutes int,
) *GetAvailability {
	if slotMinutes <= 0 {
		slotMinutes = 60
	}
	return &GetAvailability{
		repo:    repo,
		checker: checker,
		step:    slotMinutes,
	}
}

// Execute classifies a single range for the caller.
func (uc *GetAvailability) Execute(
	ctx context.Context,
	in GetAvailabilityInput,
) (*SlotView, error) {

	if err := in.Range.Validate(); err != nil {
		return nil, err
	}
	if _, err := uc.repo.GetCourt(ctx, in.CourtID); err != nil {
		return nil, err
	}

	cl, err := uc.checker.Classify(ctx, uc.repo, in.CourtID, in.Range, Exclusion{UserID: in.UserID})
	if err != nil {
		return nil, err
	}
	return &SlotView{TimeRange: in.Range, Classification: cl}, nil
}

// DaySlots lays a grid of slotMinutes slots over one day and classifies each
// one. Claims are loaded once for the whole day.
func (uc *GetAvailability) DaySlots(
	ctx context.Context,
	in DaySlotsInput,
) ([]SlotView, error) {

	if in.From == "" {
		in.From = "00:00"
	}
	if in.To == "" {
		in.To = "00:00"
	}

	window, err := slot.New(in.Date, in.From, in.To)
	if err != nil {
		return nil, err
	}
	if _, err := uc.repo.GetCourt(ctx, in.CourtID); err != nil {
		return nil, err
	}

	start, end := window.Span()
	if end-start < uc.step {
		return nil, httperr.ErrBusiness("invalid_time_range")
	}

	holds, err := uc.checker.Holds(ctx, uc.repo, in.CourtID, window, Exclusion{})
	if err != nil {
		return nil, err
	}

	now := uc.checker.Now()
	policy := uc.checker.Policy()

	views := make([]SlotView, 0, (end-start)/uc.step)
	for cur := start; cur+uc.step <= end; cur += uc.step {
		rng := slot.TimeRange{
			Date:  in.Date,
			Start: slot.FormatClock(cur),
			End:   slot.FormatClock(cur + uc.step),
		}
		// grid slots past midnight belong to the next calendar day
		if cur >= slot.MinutesPerDay {
			rng.Date = shiftDate(in.Date, 1)
		}
		views = append(views, SlotView{
			TimeRange:      rng,
			Classification: slot.Classify(rng, holds, policy, now),
		})
	}
	return views, nil
}

func shiftDate(date string, days int) string {
	d, err := time.Parse(slot.DateLayout, date)
	if err != nil {
		return date
	}
	return d.AddDate(0, 0, days).Format(slot.DateLayout)
}
