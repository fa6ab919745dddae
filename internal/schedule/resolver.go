package schedule

import (
	"time"

	"github.com/teambition/rrule-go"

	"attendbot/internal/locator"
)

// DateText formats t as m/d/yyyy without leading zeroes, the form used in
// the date row.
func DateText(t time.Time) string {
	return t.Format("1/2/2006")
}

// indexFrom returns the first index >= from whose value equals target, or -1.
func indexFrom(values []string, target string, from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < len(values); i++ {
		if values[i] == target {
			return i
		}
	}
	return -1
}

// searchDays lists today and the following days-1 calendar days at local
// midnight.
func searchDays(today time.Time, days int) ([]time.Time, error) {
	if days <= 0 {
		return nil, nil
	}
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Count:   days,
		Dtstart: start,
	})
	if err != nil {
		return nil, err
	}
	return r.All(), nil
}

// NextEventColumn finds the first day within the horizon, starting today,
// that appears in dateRow and returns its 1-based column and date text.
func NextEventColumn(dateRow []string, today time.Time, days, headerCols int) (int, string, error) {
	candidates, err := searchDays(today, days)
	if err != nil {
		return 0, "", err
	}
	for _, d := range candidates {
		text := DateText(d)
		if idx := indexFrom(dateRow, text, headerCols); idx != -1 {
			return idx + 1, text, nil
		}
	}
	return 0, "", noUpcomingEvent(days)
}

// ResolveColumn maps a locator to its 1-based column. An uninitialized
// locator selects the next upcoming event. Duplicated dates resolve to the
// leftmost match plus the locator offset; the offset column is not checked
// to still carry the same date.
func ResolveColumn(loc locator.Locator, dateRow []string, today time.Time, days, headerCols int) (int, error) {
	if !loc.Valid() {
		col, _, err := NextEventColumn(dateRow, today, days, headerCols)
		return col, err
	}

	date, err := loc.Date()
	if err != nil {
		return 0, err
	}
	offset, err := loc.Offset()
	if err != nil {
		return 0, err
	}

	idx := indexFrom(dateRow, date, headerCols)
	if idx == -1 {
		// The suggestion is best effort; its failure must not mask the miss.
		_, next, nerr := NextEventColumn(dateRow, today, days, headerCols)
		if nerr != nil {
			next = ""
		}
		return 0, dateNotFound(date, next)
	}
	return idx + offset + 1, nil
}
