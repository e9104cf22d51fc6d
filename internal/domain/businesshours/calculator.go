package businesshours

import (
	"errors"
	"fmt"
	"time"
)

// maxLookahead bounds the search for the next business day.
const maxLookahead = 366

// ContestedWindow is the payment window granted while the office is open.
const ContestedWindow = time.Hour

var ErrNoBusinessDays = errors.New("business calendar has no business weekday")

// Calculator answers "when is the next fair payment deadline" for the
// facility's office hours. It holds no state beyond its configuration.
type Calculator struct {
	Location *time.Location
	// Open and Close are minutes after local midnight.
	Open  int
	Close int

	OffDays  map[time.Weekday]bool
	Holidays map[string]bool // YYYY-MM-DD in Location
}

func New(
	loc *time.Location,
	opening string,
	closing string,
	offDays []time.Weekday,
	holidays []string,
) (*Calculator, error) {

	if loc == nil {
		loc = time.UTC
	}

	openMin, err := parseHM(opening)
	if err != nil {
		return nil, fmt.Errorf("opening time: %w", err)
	}
	closeMin, err := parseHM(closing)
	if err != nil {
		return nil, fmt.Errorf("closing time: %w", err)
	}
	if closeMin <= openMin {
		return nil, fmt.Errorf("closing time %s must be after opening time %s", closing, opening)
	}

	off := make(map[time.Weekday]bool, len(offDays))
	for _, d := range offDays {
		off[d] = true
	}
	if len(off) >= 7 {
		return nil, ErrNoBusinessDays
	}

	hol := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		if _, err := time.Parse("2006-01-02", h); err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h, err)
		}
		hol[h] = true
	}

	return &Calculator{
		Location: loc,
		Open:     openMin,
		Close:    closeMin,
		OffDays:  off,
		Holidays: hol,
	}, nil
}

func parseHM(hm string) (int, error) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsBusinessDay reports whether the calendar date of day (in the facility
// location) is neither a weekly off-day nor a holiday.
func (c *Calculator) IsBusinessDay(day time.Time) bool {
	local := day.In(c.Location)
	if c.OffDays[local.Weekday()] {
		return false
	}
	return !c.Holidays[local.Format("2006-01-02")]
}

// OpeningOn returns the opening instant on day's calendar date.
func (c *Calculator) OpeningOn(day time.Time) time.Time {
	local := day.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location).
		Add(time.Duration(c.Open) * time.Minute)
}

// ClosingOn returns the closing instant on day's calendar date.
func (c *Calculator) ClosingOn(day time.Time) time.Time {
	local := day.In(c.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location).
		Add(time.Duration(c.Close) * time.Minute)
}

// NextBusinessDeadline gives a promoted waitlist user one hour while the
// office is open; outside office hours the clock starts at the next opening.
func (c *Calculator) NextBusinessDeadline(now time.Time) time.Time {
	local := now.In(c.Location)

	if c.IsBusinessDay(local) {
		opening := c.OpeningOn(local)
		closing := c.ClosingOn(local)

		// open hours are [opening, closing)
		if !local.Before(opening) && local.Before(closing) {
			return local.Add(ContestedWindow)
		}
		if local.Before(opening) {
			return opening
		}
	}

	day := local
	for i := 0; i < maxLookahead; i++ {
		day = time.Date(day.Year(), day.Month(), day.Day()+1, 12, 0, 0, 0, c.Location)
		if c.IsBusinessDay(day) {
			return c.OpeningOn(day)
		}
	}

	// every day in the lookahead is a holiday; New rejects all-off calendars,
	// so this only triggers with a year of holidays configured
	return local.Add(24 * time.Hour)
}
