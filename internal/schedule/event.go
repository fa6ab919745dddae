package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"attendbot/internal/cache"
	appLog "attendbot/internal/log"
	"attendbot/internal/model"
	"attendbot/internal/sheet"
)

// NormalizeType lowercases a single-word event type; multi-word types are
// kept as written.
func NormalizeType(s string) string {
	if strings.Contains(s, " ") {
		return s
	}
	return cases.Lower(language.Und).String(s)
}

// DescribeEvent returns the event info for a 1-based column, cached with
// the short TTL.
func (s *Service) DescribeEvent(ctx context.Context, col int) (model.EventInfo, error) {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return model.EventInfo{}, err
	}
	return s.describe(ctx, t, col)
}

func (s *Service) describe(ctx context.Context, t sheet.Table, col int) (model.EventInfo, error) {
	info, err := cache.GetOrComputeJSON(ctx, s.cache, s.opts.Keys.EventInfo(col), s.opts.ShortTTL, func(ctx context.Context) (model.EventInfo, error) {
		return s.readEvent(ctx, t, col)
	})
	if err != nil {
		return model.EventInfo{}, backingStore("read event info", err)
	}
	return info, nil
}

// readEvent reads the info block of col straight from the table.
func (s *Service) readEvent(ctx context.Context, t sheet.Table, col int) (model.EventInfo, error) {
	l := s.opts.Layout
	first := l.firstInfoRow()
	vals, err := t.ColumnValues(ctx, col, first, l.infoRows())
	if err != nil {
		return model.EventInfo{}, err
	}
	bg, err := t.Background(ctx, first, col)
	if err != nil {
		return model.EventInfo{}, err
	}

	at := func(row int) string { return vals[row-first] }
	count, err := strconv.Atoi(strings.TrimSpace(at(l.CountRow)))
	if err != nil {
		return model.EventInfo{}, fmt.Errorf("count in column %d: %w", col, err)
	}

	return model.EventInfo{
		Type:           NormalizeType(at(l.DescriptionRow)),
		Date:           at(l.DateRow),
		Time:           at(l.TimeRow),
		Location:       at(l.LocationRow),
		Count:          count,
		IncludeTimeLoc: strings.EqualFold(bg, l.WhiteColor),
	}, nil
}

// EventDescription renders the description of col. includeTimeLoc is
// ignored for highlighted events.
func (s *Service) EventDescription(ctx context.Context, col int, includeTimeLoc bool) (string, error) {
	info, err := s.DescribeEvent(ctx, col)
	if err != nil {
		return "", err
	}
	return info.Description(includeTimeLoc), nil
}

// EventCount reads the headcount of col directly, bypassing the cache.
func (s *Service) EventCount(ctx context.Context, col int) (int, error) {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return 0, err
	}
	return s.eventCount(ctx, t, col)
}

func (s *Service) eventCount(ctx context.Context, t sheet.Table, col int) (int, error) {
	v, err := t.DisplayValue(ctx, s.opts.Layout.CountRow, col)
	if err != nil {
		return 0, backingStore("read count", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, backingStore("read count", fmt.Errorf("column %d: %w", col, err))
	}
	return n, nil
}

// ColumnEvent pairs an event with its 1-based column.
type ColumnEvent struct {
	Column int
	Info   model.EventInfo
}

// Events describes every dated column after the header, in sheet order.
// Columns whose info cannot be read are logged and skipped.
func (s *Service) Events(ctx context.Context) ([]ColumnEvent, error) {
	t, err := s.currentSheet(ctx)
	if err != nil {
		return nil, err
	}
	dates, err := s.dateRow(ctx, t)
	if err != nil {
		return nil, err
	}

	out := make([]ColumnEvent, 0, len(dates))
	for i := s.opts.Layout.HeaderCols; i < len(dates); i++ {
		if strings.TrimSpace(dates[i]) == "" {
			continue
		}
		info, err := s.describe(ctx, t, i+1)
		if err != nil {
			appLog.Warn("skipping unreadable event column", "col", i+1, "error", err.Error())
			continue
		}
		out = append(out, ColumnEvent{Column: i + 1, Info: info})
	}
	return out, nil
}
