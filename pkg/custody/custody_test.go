package custody

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fefejiro/peacepad/pkg/models"
)

func testPartnership(pattern models.CustodyPattern, anchor time.Time) models.Partnership {
	return models.Partnership{
		ID:                   "partnership-1",
		User1ID:              "user-a",
		User2ID:              "user-b",
		CustodyEnabled:       true,
		CustodyPattern:       &pattern,
		CustodyStartDate:     &anchor,
		CustodyPrimaryParent: models.ParentUser1,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekOnOffPeriodicity(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)

	// Same parent after two full weeks, different parent after one.
	for i := 0; i < 60; i++ {
		d := anchor.AddDate(0, 0, i)
		assert.Equal(t, ForDate(d, p, nil), ForDate(d.AddDate(0, 0, 14), p, nil), "day %d", i)
		assert.NotEqual(t, ForDate(d, p, nil), ForDate(d.AddDate(0, 0, 7), p, nil), "day %d", i)
	}

	// Anchor day is day one of the cycle and belongs to primary.
	assert.Equal(t, models.ParentUser1, ForDate(anchor, p, nil))
	assert.Equal(t, models.ParentUser2, ForDate(anchor.AddDate(0, 0, 7), p, nil))
}

func TestTwoTwoThreeCycle(t *testing.T) {
	anchor := date(2024, time.March, 4)
	p := testPartnership(models.PatternTwoTwoThree, anchor)

	// Over any 14 consecutive days each parent gets exactly 7.
	for offset := 0; offset < 14; offset++ {
		counts := map[models.ParentLabel]int{}
		for i := 0; i < 14; i++ {
			counts[ForDate(anchor.AddDate(0, 0, offset+i), p, nil)]++
		}
		assert.Equal(t, 7, counts[models.ParentUser1], "offset %d", offset)
		assert.Equal(t, 7, counts[models.ParentUser2], "offset %d", offset)
	}

	// First week: 2 primary, 2 secondary, 3 primary. Second week flips the
	// 3-day block.
	want := []models.ParentLabel{
		models.ParentUser1, models.ParentUser1,
		models.ParentUser2, models.ParentUser2,
		models.ParentUser1, models.ParentUser1, models.ParentUser1,
		models.ParentUser1, models.ParentUser1,
		models.ParentUser2, models.ParentUser2,
		models.ParentUser2, models.ParentUser2, models.ParentUser2,
	}
	for i, expected := range want {
		assert.Equal(t, expected, ForDate(anchor.AddDate(0, 0, i), p, nil), "day %d", i)
	}
}

func TestEveryOtherWeekendScenario(t *testing.T) {
	// Anchor 2024-01-01 is a Monday; user1 is primary.
	p := testPartnership(models.PatternEveryOtherWeekend, date(2024, time.January, 1))

	// Week 0 Saturday belongs to primary, week 1 Saturday to secondary.
	assert.Equal(t, models.ParentUser1, ForDate(date(2024, time.January, 6), p, nil))
	assert.Equal(t, models.ParentUser2, ForDate(date(2024, time.January, 13), p, nil))

	// Weekdays never transfer: every Tuesday for a year is user1's.
	for w := 0; w < 52; w++ {
		tuesday := date(2024, time.January, 2).AddDate(0, 0, 7*w)
		assert.Equal(t, models.ParentUser1, ForDate(tuesday, p, nil), "week %d", w)
	}
}

func TestAnchorDayBelongsToPrimary(t *testing.T) {
	anchor := date(2024, time.June, 10)
	for _, pattern := range []models.CustodyPattern{
		models.PatternWeekOnOff,
		models.PatternEveryOtherWeekend,
		models.PatternTwoTwoThree,
	} {
		p := testPartnership(pattern, anchor)
		assert.Equal(t, models.ParentUser1, ForDate(anchor, p, nil), string(pattern))
	}
}

func TestPreAnchorHasNoAssignment(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)

	assert.Equal(t, models.ParentNone, ForDate(anchor.AddDate(0, 0, -1), p, nil))
	assert.Equal(t, models.ParentNone, ForDate(anchor.AddDate(0, 0, -365), p, nil))
}

func TestIncompleteConfiguration(t *testing.T) {
	anchor := date(2024, time.January, 1)

	disabled := testPartnership(models.PatternWeekOnOff, anchor)
	disabled.CustodyEnabled = false
	assert.Equal(t, models.ParentNone, ForDate(anchor, disabled, nil))

	noPattern := testPartnership(models.PatternWeekOnOff, anchor)
	noPattern.CustodyPattern = nil
	assert.Equal(t, models.ParentNone, ForDate(anchor, noPattern, nil))

	noAnchor := testPartnership(models.PatternWeekOnOff, anchor)
	noAnchor.CustodyStartDate = nil
	assert.Equal(t, models.ParentNone, ForDate(anchor, noAnchor, nil))

	unknown := testPartnership(models.CustodyPattern("lunar_cycle"), anchor)
	assert.Equal(t, models.ParentNone, ForDate(anchor, unknown, nil))
}

func TestSecondaryAsPrimaryParent(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)
	p.CustodyPrimaryParent = models.ParentUser2

	assert.Equal(t, models.ParentUser2, ForDate(anchor, p, nil))
	assert.Equal(t, models.ParentUser1, ForDate(anchor.AddDate(0, 0, 7), p, nil))
}

func TestTimeOfDayIsIgnored(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)

	morning := time.Date(2024, time.January, 8, 0, 1, 0, 0, time.UTC)
	night := time.Date(2024, time.January, 8, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, ForDate(morning, p, nil), ForDate(night, p, nil))
	assert.Equal(t, models.ParentUser2, ForDate(night, p, nil))
}

func TestOverridePrecedence(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)

	// 2024-01-03 falls in week 0, user1's week under the pattern.
	target := date(2024, time.January, 3)
	assert.Equal(t, models.ParentUser1, ForDate(target, p, nil))

	end := date(2024, time.January, 5)
	vacation := models.Event{
		ID:        "event-1",
		Type:      models.EventTypeVacation,
		StartDate: date(2024, time.January, 2),
		EndDate:   &end,
		CreatedBy: "user-b",
		CreatedAt: time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, models.ParentUser2, ForDate(target, p, []models.Event{vacation}))

	// Dates outside the override range still follow the pattern.
	assert.Equal(t, models.ParentUser1, ForDate(date(2024, time.January, 6), p, []models.Event{vacation}))
}

func TestOverlappingOverridesMostRecentWins(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)
	target := date(2024, time.January, 3)

	older := models.Event{
		ID:        "event-1",
		Type:      models.EventTypeVacation,
		StartDate: date(2024, time.January, 2),
		EndDate:   timePtr(date(2024, time.January, 4)),
		CreatedBy: "user-a",
		CreatedAt: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := models.Event{
		ID:        "event-2",
		Type:      models.EventTypeHoliday,
		StartDate: date(2024, time.January, 3),
		CreatedBy: "user-b",
		CreatedAt: time.Date(2024, time.January, 1, 11, 0, 0, 0, time.UTC),
	}

	// The more recently created override wins regardless of list order.
	assert.Equal(t, models.ParentUser2, ForDate(target, p, []models.Event{older, newer}))
	assert.Equal(t, models.ParentUser2, ForDate(target, p, []models.Event{newer, older}))
}

func TestNonOverrideEventsAreIgnored(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)
	target := date(2024, time.January, 10) // week 1, user2's week

	appointment := models.Event{
		ID:        "event-1",
		Type:      "appointment",
		StartDate: target,
		CreatedBy: "user-a",
		CreatedAt: time.Now(),
	}
	outsider := models.Event{
		ID:        "event-2",
		Type:      models.EventTypeVacation,
		StartDate: target,
		CreatedBy: "someone-else",
		CreatedAt: time.Now(),
	}

	assert.Equal(t, models.ParentUser2, ForDate(target, p, []models.Event{appointment, outsider}))
}

func TestOverrideAppliesEvenWhenCustodyDisabled(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)
	p.CustodyEnabled = false
	target := date(2024, time.January, 3)

	vacation := models.Event{
		ID:        "event-1",
		Type:      models.EventTypeVacation,
		StartDate: target,
		CreatedBy: "user-b",
		CreatedAt: time.Now(),
	}

	assert.Equal(t, models.ParentUser2, ForDate(target, p, []models.Event{vacation}))
}

func TestRange(t *testing.T) {
	anchor := date(2024, time.January, 1)
	p := testPartnership(models.PatternWeekOnOff, anchor)

	days := Range(date(2024, time.January, 1), date(2024, time.January, 14), p, nil)
	assert.Len(t, days, 14)

	assert.Equal(t, "2024-01-01", days[0].Date)
	assert.NotNil(t, days[0].Parent)
	assert.Equal(t, models.ParentUser1, *days[0].Parent)

	assert.Equal(t, "2024-01-14", days[13].Date)
	assert.NotNil(t, days[13].Parent)
	assert.Equal(t, models.ParentUser2, *days[13].Parent)

	// Pre-anchor days come back with a null parent.
	before := Range(date(2023, time.December, 30), date(2023, time.December, 31), p, nil)
	assert.Len(t, before, 2)
	assert.Nil(t, before[0].Parent)
	assert.Nil(t, before[1].Parent)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
