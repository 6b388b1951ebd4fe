package generic

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// =============================================================================
// PERIOD CALENDAR - Reporting period labels
// =============================================================================

// DefaultPeriodRule starts a reporting period on the first day of every quarter.
const DefaultPeriodRule = "FREQ=MONTHLY;INTERVAL=3;BYMONTHDAY=1;DTSTART=20250101T000000Z"

// PeriodCalendar turns a recurrence rule into period labels.
//
// The ledger treats labels as opaque strings. The calendar only proposes
// them: the label for the period containing a date, and the label of the
// period following one already in the history.
//
// Label format follows the rule frequency:
//
//	MONTHLY, INTERVAL=3   "2025 Q4"
//	MONTHLY               "2025-10"
//	YEARLY                "2025"
//	anything else         "2025-10-01"
type PeriodCalendar struct {
	rule *rrule.RRule
	freq rrule.Frequency
	step int
}

// NewPeriodCalendar parses an RFC 5545 recurrence rule.
// The rule should carry a DTSTART; without one periods are anchored at parse time.
func NewPeriodCalendar(rule string) (*PeriodCalendar, error) {
	r, err := rrule.StrToRRule(rule)
	if err != nil {
		return nil, fmt.Errorf("invalid period rule %q: %w", rule, err)
	}
	step := r.OrigOptions.Interval
	if step == 0 {
		step = 1
	}
	return &PeriodCalendar{rule: r, freq: r.OrigOptions.Freq, step: step}, nil
}

// PeriodStart returns the start of the period containing t.
// Dates before the first occurrence belong to the first period.
func (c *PeriodCalendar) PeriodStart(t time.Time) time.Time {
	start := c.rule.Before(t, true)
	if start.IsZero() {
		return c.rule.After(t, true)
	}
	return start
}

// Label returns the label of the period containing t.
func (c *PeriodCalendar) Label(t time.Time) string {
	return c.format(c.PeriodStart(t))
}

// NextLabel returns the label of the period after the one named by label.
func (c *PeriodCalendar) NextLabel(label string) (string, error) {
	start, err := c.parse(label)
	if err != nil {
		return "", err
	}
	next := c.rule.After(start, false)
	if next.IsZero() {
		return "", fmt.Errorf("period rule has no occurrence after %q", label)
	}
	return c.format(next), nil
}

func (c *PeriodCalendar) quarterly() bool {
	return c.freq == rrule.MONTHLY && c.step == 3
}

func (c *PeriodCalendar) format(t time.Time) string {
	switch {
	case c.quarterly():
		return fmt.Sprintf("%d Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case c.freq == rrule.MONTHLY:
		return t.Format("2006-01")
	case c.freq == rrule.YEARLY:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

func (c *PeriodCalendar) parse(label string) (time.Time, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.Time{}, ErrEmptyPeriod
	}
	loc := c.rule.OrigOptions.Dtstart.Location()

	switch {
	case c.quarterly():
		var year, quarter int
		if _, err := fmt.Sscanf(label, "%d Q%d", &year, &quarter); err != nil || quarter < 1 || quarter > 4 {
			return time.Time{}, fmt.Errorf("period %q is not a quarter label", label)
		}
		return time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, loc), nil
	case c.freq == rrule.MONTHLY:
		return time.ParseInLocation("2006-01", label, loc)
	case c.freq == rrule.YEARLY:
		return time.ParseInLocation("2006", label, loc)
	default:
		return time.ParseInLocation("2006-01-02", label, loc)
	}
}
