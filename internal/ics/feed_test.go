package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"attendbot/internal/model"
	"attendbot/internal/schedule"
)

func sampleEvents() []schedule.ColumnEvent {
	return []schedule.ColumnEvent{
		{Column: 3, Info: model.EventInfo{Type: "practice", Date: "3/2/2024", Time: "8-10", Location: "Roberts", Count: 1, IncludeTimeLoc: true}},
		{Column: 4, Info: model.EventInfo{Type: "Scrimmage vs. BU", Date: "3/2/2024", Time: "1-3", Location: "Harvard", Count: 0}},
		{Column: 5, Info: model.EventInfo{Type: "practice", Date: "TBD", Count: 0}},
	}
}

func TestRenderRoundTrips(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	body := Render(sampleEvents(), FeedOptions{Name: "Spring", Domain: "example.org", Location: time.UTC, Stamp: stamp})

	if !strings.Contains(body, "X-WR-CALNAME:Spring") {
		t.Fatalf("expected calendar name, got:\n%s", body)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected the undated column to be skipped, got %d events", len(events))
	}

	first := events[0]
	if first.Id() != "col-3-20240302@example.org" {
		t.Fatalf("unexpected uid %q", first.Id())
	}
	if got := first.GetProperty(ical.ComponentPropertySummary).Value; got != "practice" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := first.GetProperty(ical.ComponentPropertyLocation).Value; got != "Roberts" {
		t.Fatalf("unexpected location %q", got)
	}
	if got := first.GetProperty(ical.ComponentPropertyDescription).Value; got != "practice on 3/2/2024 from 8-10 at Roberts (1 person in so far)" {
		t.Fatalf("unexpected description %q", got)
	}
	start, err := first.GetAllDayStartAt()
	if err != nil {
		t.Fatal(err)
	}
	if start.Year() != 2024 || start.Month() != time.March || start.Day() != 2 {
		t.Fatalf("unexpected start %v", start)
	}

	second := events[1]
	if second.GetProperty(ical.ComponentPropertyLocation) != nil {
		t.Fatalf("expected highlighted event to omit location")
	}
	if got := second.GetProperty(ical.ComponentPropertyDescription).Value; got != "Scrimmage vs. BU on 3/2/2024 (0 people in so far)" {
		t.Fatalf("unexpected description %q", got)
	}
}

func TestEventUIDStable(t *testing.T) {
	day := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	if got := eventUID(12, day, "x"); got != "col-12-20241105@x" {
		t.Fatalf("unexpected uid %q", got)
	}
}
