// Package custody computes which parent has custody on a calendar date.
// All computation is day-granular and side-effect-free: inputs are the
// partnership custody configuration and the partnership's events, the
// output is a parent label or none. Incomplete configuration degrades to
// "no assignment", never an error.
package custody

import (
	"time"

	"github.com/Gobusters/ectolinq"

	"github.com/fefejiro/peacepad/pkg/models"
)

// ForDate returns the parent with custody on the target date.
//
// Override events (vacation, holiday) covering the date win over the
// regular pattern; among overlapping overrides the most recently created
// wins. With no override, the partnership's pattern is evaluated against
// the anchor date. Returns models.ParentNone when custody is disabled,
// the configuration is incomplete, the date predates the anchor, or the
// pattern is unknown.
func ForDate(date time.Time, p models.Partnership, events []models.Event) models.ParentLabel {
	day := startOfDay(date)

	if label := overrideFor(day, p, events); label != models.ParentNone {
		return label
	}

	if !p.CustodyEnabled || p.CustodyPattern == nil || p.CustodyStartDate == nil {
		return models.ParentNone
	}

	days := daysBetween(startOfDay(*p.CustodyStartDate), day)
	if days < 0 {
		return models.ParentNone // the schedule has no retroactive effect
	}

	primary := p.PrimaryParent()
	secondary := other(primary)

	switch *p.CustodyPattern {
	case models.PatternWeekOnOff:
		return weekOnOff(days, primary, secondary)
	case models.PatternEveryOtherWeekend:
		return everyOtherWeekend(day, days, primary, secondary)
	case models.PatternTwoTwoThree:
		return twoTwoThree(days, primary, secondary)
	}

	return models.ParentNone // unknown pattern
}

// Range computes the custody calendar for every day in [from, to],
// inclusive. Serves the month-view endpoint.
func Range(from, to time.Time, p models.Partnership, events []models.Event) []models.CustodyDay {
	start := startOfDay(from)
	end := startOfDay(to)

	var days []models.CustodyDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := models.CustodyDay{Date: d.Format("2006-01-02")}
		if label := ForDate(d, p, events); label != models.ParentNone {
			parent := label
			day.Parent = &parent
		}
		days = append(days, day)
	}

	return days
}

// overrideFor scans events for a custody override covering the day. Among
// matching overrides the most recently created wins; an override created
// by a non-member is ignored.
func overrideFor(day time.Time, p models.Partnership, events []models.Event) models.ParentLabel {
	overrides := ectolinq.Filter(events, func(e models.Event) bool {
		return e.OverridesCustody() && covers(e, day) && p.LabelFor(e.CreatedBy) != models.ParentNone
	})

	var winner *models.Event
	for i := range overrides {
		if winner == nil || overrides[i].CreatedAt.After(winner.CreatedAt) {
			winner = &overrides[i]
		}
	}

	if winner == nil {
		return models.ParentNone
	}
	return p.LabelFor(winner.CreatedBy)
}

// covers reports whether the event's [start, end] day range contains the
// day. A missing end date means a single-day event.
func covers(e models.Event, day time.Time) bool {
	start := startOfDay(e.StartDate)
	end := start
	if e.EndDate != nil {
		end = startOfDay(*e.EndDate)
	}
	return !day.Before(start) && !day.After(end)
}

// weekOnOff alternates full weeks: primary on even weeks, secondary on odd.
func weekOnOff(days int, primary, secondary models.ParentLabel) models.ParentLabel {
	if (days/7)%2 == 0 {
		return primary
	}
	return secondary
}

// everyOtherWeekend gives the primary every weekday; weekends alternate by
// week number. Weekday custody never transfers in this pattern.
func everyOtherWeekend(day time.Time, days int, primary, secondary models.ParentLabel) models.ParentLabel {
	wd := day.Weekday()
	if wd != time.Saturday && wd != time.Sunday {
		return primary
	}
	if (days/7)%2 == 0 {
		return primary
	}
	return secondary
}

// twoTwoThree runs the 2-2-3 rotation on a 7-day cycle: two days primary,
// two days secondary, then a 3-day block that alternates weekly.
func twoTwoThree(days int, primary, secondary models.ParentLabel) models.ParentLabel {
	dayInCycle := days % 7
	weekParity := (days / 7) % 2

	switch {
	case dayInCycle <= 1:
		return primary
	case dayInCycle <= 3:
		return secondary
	default:
		if weekParity == 0 {
			return primary
		}
		return secondary
	}
}

// other flips a parent label.
func other(label models.ParentLabel) models.ParentLabel {
	if label == models.ParentUser1 {
		return models.ParentUser2
	}
	return models.ParentUser1
}

// startOfDay truncates to midnight UTC so time-of-day never leaks into
// day arithmetic.
func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b, negative when b is
// earlier. Both inputs must already be start-of-day values.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
