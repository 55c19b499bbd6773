package flow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout of schedule start and end dates.
const DateLayout = "2006-01-02"

// Weekday is a lowercase three-letter day name as stored in documents.
type Weekday string

const (
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
	Sunday    Weekday = "sun"
)

var weekdayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var fromTimeWeekday = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

// Schedule restricts when a case is active. Empty dates are open-ended and
// an empty day set means every day.
type Schedule struct {
	Start        string    `json:"start"`
	End          string    `json:"end"`
	Days         []Weekday `json:"days"`
	Indefinitely bool      `json:"indefinitely"`
}

// ParseDays splits raw day names into known weekdays (deduplicated, in
// weekday order) and the names it did not recognise.
func ParseDays(raw []string) ([]Weekday, []string) {
	seen := make(map[Weekday]bool, len(raw))
	var unknown []string
	for _, r := range raw {
		d := Weekday(strings.ToLower(strings.TrimSpace(r)))
		if !isWeekday(d) {
			unknown = append(unknown, r)
			continue
		}
		seen[d] = true
	}
	days := make([]Weekday, 0, len(seen))
	for _, d := range weekdayOrder {
		if seen[d] {
			days = append(days, d)
		}
	}
	return days, unknown
}

// Normalize validates the dates and days and returns a copy with the days
// deduplicated in weekday order.
func (s Schedule) Normalize() (Schedule, error) {
	var errs []error
	for _, f := range []struct{ name, val string }{{"start", s.Start}, {"end", s.End}} {
		if f.val == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, f.val); err != nil {
			errs = append(errs, fmt.Errorf("schedule %s %q: want YYYY-MM-DD", f.name, f.val))
		}
	}
	raw := make([]string, len(s.Days))
	for i, d := range s.Days {
		raw[i] = string(d)
	}
	days, unknown := ParseDays(raw)
	for _, u := range unknown {
		errs = append(errs, fmt.Errorf("schedule day %q: unknown weekday", u))
	}
	if len(errs) > 0 {
		return Schedule{}, fmt.Errorf("%w: %w", ErrInvalidSchedule, errors.Join(errs...))
	}
	s.Days = days
	return s, nil
}

// ActiveOn reports whether t falls inside the schedule.
func (s Schedule) ActiveOn(t time.Time) bool {
	day := t.Format(DateLayout)
	if s.Start != "" && day < s.Start {
		return false
	}
	if !s.Indefinitely && s.End != "" && day > s.End {
		return false
	}
	if len(s.Days) == 0 {
		return true
	}
	wd := fromTimeWeekday[t.Weekday()]
	for _, d := range s.Days {
		if d == wd {
			return true
		}
	}
	return false
}

func (s Schedule) clone() Schedule {
	if s.Days != nil {
		days := make([]Weekday, len(s.Days))
		copy(days, s.Days)
		s.Days = days
	}
	return s
}

func isWeekday(d Weekday) bool {
	for _, w := range weekdayOrder {
		if w == d {
			return true
		}
	}
	return false
}
