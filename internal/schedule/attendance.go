package schedule

import (
	"context"
	"strings"
	"time"

	"attendbot/internal/locator"
	appLog "attendbot/internal/log"
	"attendbot/internal/model"
	"attendbot/internal/sheet"
)

// Attendance is one in/out request. A zero Locator means the next event.
type Attendance struct {
	User    string
	Locator locator.Locator
	In      bool
	Note    string
}

// Alerts are informational flags attached to a successful update.
type Alerts struct {
	// BlackedOut: the cell carried the lockout color. The write still happens.
	BlackedOut bool
	// LateChange: an "out" after 10pm the day before the event.
	LateChange bool
	// PastEvent: the update landed after midnight following the event date.
	PastEvent bool
}

type AttendanceResult struct {
	Row    int
	Column int
	In     bool
	Note   string
	// Unchanged reports that the cell already held this status and note.
	Unchanged bool
	Alerts    Alerts

	// Event and Count feed reply text. Either is nil when it could not be read.
	Event *model.EventInfo
	Count *int
}

// UpdateAttendance parses locText ("" for the next event) and applies the update.
func (s *Service) UpdateAttendance(ctx context.Context, user, locText string, in bool, note string) (AttendanceResult, error) {
	if !in && note == "" {
		return AttendanceResult{}, missingReason()
	}
	loc, res := s.ParseLocator(locText)
	if locText != "" && res != locator.Success {
		return AttendanceResult{}, invalidLocator(locText)
	}
	return s.Apply(ctx, Attendance{User: user, Locator: loc, In: in, Note: note})
}

// Apply writes the user's status and note into the resolved event cell.
// Validation happens before any table access; once the write succeeds,
// failures deriving alerts or reply details are logged and dropped.
func (s *Service) Apply(ctx context.Context, a Attendance) (AttendanceResult, error) {
	if !a.In && a.Note == "" {
		return AttendanceResult{}, missingReason()
	}

	t, err := s.currentSheet(ctx)
	if err != nil {
		return AttendanceResult{}, err
	}
	row, err := s.userRow(ctx, t, a.User)
	if err != nil {
		return AttendanceResult{}, err
	}
	col, err := s.resolve(ctx, t, a.Locator)
	if err != nil {
		return AttendanceResult{}, err
	}

	status := model.StatusOut
	if a.In {
		status = model.StatusIn
	}
	res := AttendanceResult{Row: row, Column: col, In: a.In, Note: a.Note}

	bg, err := t.Background(ctx, row, col)
	if err != nil {
		return AttendanceResult{}, backingStore("read cell", err)
	}
	res.Alerts.BlackedOut = strings.EqualFold(bg, s.opts.Layout.BlackColor)

	prev, err := t.DisplayValue(ctx, row, col)
	if err != nil {
		return AttendanceResult{}, backingStore("read cell", err)
	}
	prevNote, err := t.Note(ctx, row, col)
	if err != nil {
		return AttendanceResult{}, backingStore("read cell", err)
	}
	res.Unchanged = prev == status && prevNote == a.Note

	if err := t.SetNote(ctx, row, col, a.Note); err != nil {
		return AttendanceResult{}, backingStore("write note", err)
	}
	if err := t.SetValue(ctx, row, col, status); err != nil {
		return AttendanceResult{}, backingStore("write status", err)
	}
	appLog.Info("attendance updated", "user", a.User, "row", row, "col", col, "status", status, "unchanged", res.Unchanged)

	s.fillDetails(ctx, t, &res)
	return res, nil
}

// fillDetails derives the date alerts and reply details for a completed write.
func (s *Service) fillDetails(ctx context.Context, t sheet.Table, res *AttendanceResult) {
	info, err := s.describe(ctx, t, res.Column)
	if err != nil {
		appLog.Warn("event info unavailable after update", "col", res.Column, "error", err.Error())
	} else {
		res.Event = &info
		late, past, err := dateAlerts(info.Date, s.Now(), s.opts.Location, res.In)
		if err != nil {
			appLog.Warn("skipping date alerts", "col", res.Column, "date", info.Date, "error", err.Error())
		} else {
			res.Alerts.LateChange = late
			res.Alerts.PastEvent = past
		}
	}

	count, err := s.eventCount(ctx, t, res.Column)
	if err != nil {
		appLog.Warn("event count unavailable after update", "col", res.Column, "error", err.Error())
		return
	}
	res.Count = &count
}

// dateAlerts reports whether an update at now is a late change (only for
// "out", after 10pm the day before) or lands on a past event (after
// midnight the day after).
func dateAlerts(date string, now time.Time, loc *time.Location, in bool) (late, past bool, err error) {
	day, err := time.ParseInLocation("1/2/2006", strings.TrimSpace(date), loc)
	if err != nil {
		return false, false, err
	}
	late = !in && now.After(day.Add(-2*time.Hour))
	past = now.After(day.AddDate(0, 0, 1))
	return late, past, nil
}
