package slot

import (
	"fmt"
	"time"

	"github.com/courtbook/slot-engine/internal/httperr"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	MinutesPerDay = 24 * 60
)

// TimeRange is a (date, start, end) tuple on a court. An End at or before
// Start means the range runs past midnight into the following day.
type TimeRange struct {
	Date  string `json:"date"`
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

func New(date, start, end string) (TimeRange, error) {
	r := TimeRange{Date: date, Start: start, End: end}
	if err := r.Validate(); err != nil {
		return TimeRange{}, err
	}
	return r, nil
}

func (r TimeRange) Validate() error {
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return httperr.ErrBusiness("invalid_date")
	}
	if _, err := ParseClock(r.Start); err != nil {
		return httperr.ErrBusiness("invalid_time_range")
	}
	if _, err := ParseClock(r.End); err != nil {
		return httperr.ErrBusiness("invalid_time_range")
	}
	return nil
}

// ParseClock converts "HH:MM" to minutes after midnight.
func ParseClock(hm string) (int, error) {
	t, err := time.Parse(ClockLayout, hm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", hm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func FormatClock(minutes int) string {
	minutes = ((minutes % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// CrossesMidnight reports whether the range continues into the next day.
func (r TimeRange) CrossesMidnight() bool {
	start, _ := ParseClock(r.Start)
	end, _ := ParseClock(r.End)
	return end <= start
}

// Span returns start/end minutes relative to the range's own date midnight.
// end is always strictly greater than start.
func (r TimeRange) Span() (int, int) {
	start, _ := ParseClock(r.Start)
	end, _ := ParseClock(r.End)
	if end <= start {
		end += MinutesPerDay
	}
	return start, end
}

// SpanFrom places the range on a timeline anchored at base's midnight, so
// ranges recorded on neighbouring dates can be compared directly.
func (r TimeRange) SpanFrom(base string) (int, int, error) {
	days, err := DaysBetween(base, r.Date)
	if err != nil {
		return 0, 0, err
	}
	start, end := r.Span()
	offset := days * MinutesPerDay
	return start + offset, end + offset, nil
}

// Overlaps tests two ranges on a common 48h timeline anchored at r.Date.
func (r TimeRange) Overlaps(o TimeRange) bool {
	aStart, aEnd := r.Span()
	bStart, bEnd, err := o.SpanFrom(r.Date)
	if err != nil {
		return false
	}
	return aStart < bEnd && bStart < aEnd
}

// SearchDates lists the calendar dates whose records can intersect r:
// the previous day (its midnight-crossing tail), r.Date and, when r itself
// crosses midnight, the following day.
func (r TimeRange) SearchDates() []string {
	day, err := time.Parse(DateLayout, r.Date)
	if err != nil {
		return []string{r.Date}
	}
	dates := []string{
		day.AddDate(0, 0, -1).Format(DateLayout),
		r.Date,
	}
	if r.CrossesMidnight() {
		dates = append(dates, day.AddDate(0, 0, 1).Format(DateLayout))
	}
	return dates
}

// Bounds resolves the range to absolute instants in loc.
func (r TimeRange) Bounds(loc *time.Location) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, r.Date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := r.Span()
	return day.Add(time.Duration(start) * time.Minute),
		day.Add(time.Duration(end) * time.Minute),
		nil
}

func (r TimeRange) Key() string {
	return r.Date + " " + r.Start + "-" + r.End
}

func (r TimeRange) String() string {
	return r.Key()
}

func DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, err
	}
	b, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}
