// Package schedule resolves user-supplied dates to schedule columns, reads
// event details and records attendance, backed by a read-through cache.
//
// Nothing here invalidates cached values on write: a cached EventInfo
// (including its Count) can lag a cell update by up to Options.ShortTTL.
package schedule

import (
	"context"
	"errors"
	"strings"
	"time"

	"attendbot/internal/cache"
	"attendbot/internal/locator"
	appLog "attendbot/internal/log"
	"attendbot/internal/sheet"
)

type Service struct {
	book  sheet.Workbook
	cache *cache.Cache
	opts  Options
}

func NewService(book sheet.Workbook, c *cache.Cache, opts Options) *Service {
	return &Service{book: book, cache: c, opts: opts.normalized()}
}

// Options returns the effective (normalized) options.
func (s *Service) Options() Options {
	return s.opts
}

// Now is the service clock in the schedule's location.
func (s *Service) Now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// ParseLocator parses locator text (either offset prefix form) against the
// service clock.
func (s *Service) ParseLocator(text string) (locator.Locator, locator.ParseResult) {
	return locator.Parse(locator.FromURLSafe(text), s.Now())
}

// currentSheet returns the schedule sheet, looking its name up on the admin
// sheet when it is not fixed by configuration.
func (s *Service) currentSheet(ctx context.Context) (sheet.Table, error) {
	name := s.opts.CurrentSheet
	if name == "" {
		var err error
		name, err = s.cache.GetOrCompute(ctx, s.opts.Keys.CurrentSheet(), s.opts.LongTTL, func(ctx context.Context) (string, error) {
			admin, err := s.book.Sheet(ctx, s.opts.AdminSheet)
			if err != nil {
				return "", err
			}
			v, err := admin.DisplayValue(ctx, s.opts.Layout.CurrentSheetRow, s.opts.Layout.CurrentSheetCol)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(v) == "" {
				return "", errors.New("admin sheet does not name a current sheet")
			}
			return strings.TrimSpace(v), nil
		})
		if err != nil {
			return nil, backingStore("current sheet", err)
		}
	}

	t, err := s.book.Sheet(ctx, name)
	if err != nil {
		return nil, backingStore("open sheet", err)
	}
	return t, nil
}

// dateRow returns the whole date row (index 0 is column 1), cached with the long TTL.
func (s *Service) dateRow(ctx context.Context, t sheet.Table) ([]string, error) {
	row, err := cache.GetOrComputeJSON(ctx, s.cache, s.opts.Keys.DateRow(), s.opts.LongTTL, func(ctx context.Context) ([]string, error) {
		last, err := t.LastColumn(ctx)
		if err != nil {
			return nil, err
		}
		if last == 0 {
			return []string{}, nil
		}
		return t.RowValues(ctx, s.opts.Layout.DateRow, 1, last)
	})
	if err != nil {
		return nil, backingStore("read date row", err)
	}
	return row, nil
}

// usernames returns the username column (index 0 is row 1), cached with the long TTL.
func (s *Service) usernames(ctx context.Context, t sheet.Table) ([]string, error) {
	col, err := cache.GetOrComputeJSON(ctx, s.cache, s.opts.Keys.UserColumn(), s.opts.LongTTL, func(ctx context.Context) ([]string, error) {
		last, err := t.LastRow(ctx)
		if err != nil {
			return nil, err
		}
		if last == 0 {
			return []string{}, nil
		}
		return t.ColumnValues(ctx, s.opts.Layout.UsernameCol, 1, last)
	})
	if err != nil {
		return nil, backingStore("read usernames", err)
	}
	return col, nil
}

// UserRow returns the 1-based row of user. Matching is exact.
func (s *Service) UserRow(ctx context.Context, user string) (int, error) {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return 0, err
	}
	return s.userRow(ctx, t, user)
}

func (s *Service) userRow(ctx context.Context, t sheet.Table, user string) (int, error) {
	names, err := s.usernames(ctx, t)
	if err != nil {
		return 0, err
	}
	idx := indexFrom(names, user, s.opts.Layout.HeaderRows)
	if user == "" || idx == -1 {
		return 0, userNotFound(user)
	}
	return idx + 1, nil
}

// ResolveColumn maps locator text ("" for the next event) to a 1-based column.
func (s *Service) ResolveColumn(ctx context.Context, text string) (int, error) {
	loc, res := s.ParseLocator(text)
	if text != "" && res != locator.Success {
		return 0, invalidLocator(text)
	}
	return s.ResolveLocator(ctx, loc)
}

// ResolveLocator is ResolveColumn for an already parsed (or zero) Locator.
func (s *Service) ResolveLocator(ctx context.Context, loc locator.Locator) (int, error) {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return 0, err
	}
	return s.resolve(ctx, t, loc)
}

func (s *Service) resolve(ctx context.Context, t sheet.Table, loc locator.Locator) (int, error) {
	dates, err := s.dateRow(ctx, t)
	if err != nil {
		return 0, err
	}
	col, err := ResolveColumn(loc, dates, s.Now(), s.opts.SearchDays, s.opts.Layout.HeaderCols)
	if err != nil {
		return 0, err
	}
	appLog.Debug("resolved column", "locator", loc.String(), "col", col)
	return col, nil
}

// NextEventDate returns the date text of the next upcoming event.
func (s *Service) NextEventDate(ctx context.Context) (string, error) {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return "", err
	}
	dates, err := s.dateRow(ctx, t)
	if err != nil {
		return "", err
	}
	_, date, err := NextEventColumn(dates, s.Now(), s.opts.SearchDays, s.opts.Layout.HeaderCols)
	return date, err
}

// Admins lists the usernames allowed to use admin commands, cached with the long TTL.
func (s *Service) Admins(ctx context.Context) ([]string, error) {
	admins, err := cache.GetOrComputeJSON(ctx, s.cache, s.opts.Keys.Admins(), s.opts.LongTTL, func(ctx context.Context) ([]string, error) {
		admin, err := s.book.Sheet(ctx, s.opts.AdminSheet)
		if err != nil {
			return nil, err
		}
		last, err := admin.LastRow(ctx)
		if err != nil {
			return nil, err
		}
		first := s.opts.Layout.AdminFirstRow
		out := []string{}
		if last < first {
			return out, nil
		}
		vals, err := admin.ColumnValues(ctx, s.opts.Layout.AdminCol, first, last-first+1)
		if err != nil {
			return nil, err
		}
		for _, v := range vals {
			if v != "" {
				out = append(out, v)
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, backingStore("read admins", err)
	}
	return admins, nil
}

// IsAdmin reports whether user appears in Admins.
func (s *Service) IsAdmin(ctx context.Context, user string) (bool, error) {
	admins, err := s.Admins(ctx)
	if err != nil {
		return false, err
	}
	for _, a := range admins {
		if a == user {
			return true, nil
		}
	}
	return false, nil
}

// ClearDerivedCaches drops every derived value so the next request reads
// the sheet again.
func (s *Service) ClearDerivedCaches(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, s.opts.Keys.Derived(s.opts.ClearColumns)); err != nil {
		return backingStore("clear cache", err)
	}
	return nil
}

// Prewarm loads the long-lived structural values into the cache.
func (s *Service) Prewarm(ctx context.Context) error {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return err
	}
	if _, err := s.dateRow(ctx, t); err != nil {
		return err
	}
	if _, err := s.usernames(ctx, t); err != nil {
		return err
	}
	return nil
}
