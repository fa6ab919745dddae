// Package ics publishes the attendance schedule as an iCalendar feed so
// members can subscribe to it from their calendar apps.
package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "attendbot/internal/log"
	"attendbot/internal/schedule"
)

// FeedOptions controls calendar-level metadata.
type FeedOptions struct {
	// Name is shown as the calendar title (X-WR-CALNAME).
	Name string
	// Domain qualifies event UIDs, e.g. "attendbot.example.org".
	Domain string
	// Location is the zone the sheet's dates are written in.
	Location *time.Location
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// Build renders one all-day VEVENT per schedule column. Columns whose date
// does not parse as m/d/yyyy are skipped.
func Build(events []schedule.ColumnEvent, opts FeedOptions) *ical.Calendar {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	domain := opts.Domain
	if domain == "" {
		domain = "attendbot"
	}

	cal := ical.NewCalendarFor("attendbot")
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, ev := range events {
		day, err := time.ParseInLocation("1/2/2006", strings.TrimSpace(ev.Info.Date), loc)
		if err != nil {
			appLog.Warn("ics: skipping column with unparseable date", "col", ev.Column, "date", ev.Info.Date)
			continue
		}

		vev := cal.AddEvent(eventUID(ev.Column, day, domain))
		vev.SetDtStampTime(opts.Stamp)
		vev.SetAllDayStartAt(day)
		vev.SetAllDayEndAt(day.AddDate(0, 0, 1))
		vev.SetSummary(ev.Info.Type)
		if ev.Info.IncludeTimeLoc {
			vev.SetLocation(ev.Info.Location)
		}
		vev.SetDescription(describe(ev.Info.Description(true), ev.Info.Count))
	}
	return cal
}

// Render is Build followed by serialization.
func Render(events []schedule.ColumnEvent, opts FeedOptions) string {
	return Build(events, opts).Serialize()
}

// eventUID is stable across refreshes as long as the column keeps its date.
func eventUID(col int, day time.Time, domain string) string {
	return fmt.Sprintf("col-%d-%s@%s", col, day.Format("20060102"), domain)
}

func describe(desc string, count int) string {
	if count == 1 {
		return desc + " (1 person in so far)"
	}
	return fmt.Sprintf("%s (%d people in so far)", desc, count)
}
