package schedule

import (
	"errors"
	"testing"
	"time"

	"attendbot/internal/locator"
)

var dupRow = []string{"", "", "3/2/2024", "3/2/2024", "3/5/2024"}

func mustParse(t *testing.T, text string, now time.Time) locator.Locator {
	t.Helper()
	loc, res := locator.Parse(text, now)
	if res != locator.Success {
		t.Fatalf("expected %q to parse, got %s", text, res)
	}
	return loc
}

func TestResolveColumnDuplicateDates(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	col, err := ResolveColumn(mustParse(t, "3/2", now), dupRow, now, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if col != 3 {
		t.Fatalf("expected column 3 for the first occurrence, got %d", col)
	}

	col, err = ResolveColumn(mustParse(t, "3/2#2", now), dupRow, now, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if col != 4 {
		t.Fatalf("expected column 4 for the second occurrence, got %d", col)
	}
}

func TestResolveColumnOffsetPastDuplicates(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	// #3 walks into the 3/5 column; nothing checks it is still 3/2.
	col, err := ResolveColumn(mustParse(t, "3/2#3", now), dupRow, now, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if col != 5 {
		t.Fatalf("expected column 5, got %d", col)
	}
}

func TestResolveColumnSkipsHeaderColumns(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	row := []string{"3/2/2024", "3/2/2024", "3/2/2024"}

	col, err := ResolveColumn(mustParse(t, "3/2", now), row, now, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if col != 3 {
		t.Fatalf("expected header columns to be skipped, got %d", col)
	}
}

func TestResolveColumnNextEvent(t *testing.T) {
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"same day counts", time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC), 3},
		{"day before", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 3},
		{"skips to later date", time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			col, err := ResolveColumn(locator.Locator{}, dupRow, tc.now, 7, 2)
			if err != nil {
				t.Fatal(err)
			}
			if col != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, col)
			}
		})
	}
}

func TestResolveColumnNoUpcomingEvent(t *testing.T) {
	now := time.Date(2024, 2, 20, 9, 0, 0, 0, time.UTC)

	_, err := ResolveColumn(locator.Locator{}, dupRow, now, 7, 2)
	if !errors.Is(err, ErrNoUpcomingEvent) {
		t.Fatalf("expected ErrNoUpcomingEvent, got %v", err)
	}
	if err.Error() != "no event in the next 7 days." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", CodeOf(err))
	}
}

func TestResolveColumnDateNotFoundSuggestsNext(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	_, err := ResolveColumn(mustParse(t, "3/4", now), dupRow, now, 7, 2)
	if !errors.Is(err, ErrDateNotFound) {
		t.Fatalf("expected ErrDateNotFound, got %v", err)
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if se.Suggestion != "3/2/2024" {
		t.Fatalf("expected suggestion 3/2/2024, got %q", se.Suggestion)
	}
	want := "couldn't find any event on 3/4/2024. Next event is on 3/2/2024."
	if se.Message != want {
		t.Fatalf("expected %q, got %q", want, se.Message)
	}
}

func TestResolveColumnDateNotFoundWithoutSuggestion(t *testing.T) {
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)

	_, err := ResolveColumn(mustParse(t, "3/4", now), dupRow, now, 7, 2)
	if !errors.Is(err, ErrDateNotFound) {
		t.Fatalf("expected ErrDateNotFound to survive a failed suggestion, got %v", err)
	}
	if err.Error() != "couldn't find any event on 3/4/2024." {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSearchDaysCrossesDSTAndMonths(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	today := time.Date(2024, 3, 9, 18, 30, 0, 0, ny)

	days, err := searchDays(today, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"3/9/2024", "3/10/2024", "3/11/2024", "3/12/2024"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i, d := range days {
		if DateText(d) != want[i] {
			t.Fatalf("day %d: expected %s, got %s", i, want[i], DateText(d))
		}
	}

	days, err = searchDays(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := DateText(days[2]); got != "1/1/2025" {
		t.Fatalf("expected year rollover, got %s", got)
	}
}

func TestDateText(t *testing.T) {
	if got := DateText(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)); got != "3/2/2024" {
		t.Fatalf("expected no leading zeroes, got %s", got)
	}
	if got := DateText(time.Date(2024, 11, 25, 0, 0, 0, 0, time.UTC)); got != "11/25/2024" {
		t.Fatalf("unexpected %s", got)
	}
}
