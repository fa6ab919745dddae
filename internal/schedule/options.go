package schedule

import (
	"time"

	"attendbot/internal/cache"
)

// Layout pins the spreadsheet geometry. All indices are 1-based and must
// match the sheet exactly.
type Layout struct {
	// HeaderRows / HeaderCols are label rows/columns skipped by searches.
	HeaderRows int
	HeaderCols int

	// Per-event info block, one row each, contiguous from DescriptionRow to CountRow.
	DescriptionRow int
	DateRow        int
	TimeRow        int
	LocationRow    int
	CountRow       int

	UsernameCol int

	// Admin sheet: admin usernames live in AdminCol from AdminFirstRow down,
	// the current sheet name in (CurrentSheetRow, CurrentSheetCol).
	AdminCol        int
	AdminFirstRow   int
	CurrentSheetRow int
	CurrentSheetCol int

	// BlackColor marks blacked-out cells; WhiteColor marks regular event columns.
	BlackColor string
	WhiteColor string
}

func DefaultLayout() Layout {
	return Layout{
		HeaderRows:      6,
		HeaderCols:      2,
		DescriptionRow:  1,
		DateRow:         2,
		TimeRow:         3,
		LocationRow:     4,
		CountRow:        5,
		UsernameCol:     2,
		AdminCol:        3,
		AdminFirstRow:   2,
		CurrentSheetRow: 2,
		CurrentSheetCol: 2,
		BlackColor:      "#000000",
		WhiteColor:      "#ffffff",
	}
}

func (l Layout) firstInfoRow() int { return l.DescriptionRow }
func (l Layout) infoRows() int     { return l.CountRow - l.DescriptionRow + 1 }

// Options is the immutable configuration handed to a Service.
type Options struct {
	Layout Layout

	// SearchDays bounds the "next upcoming event" search, today included.
	SearchDays int

	// LongTTL covers rarely-changing structure (date row, usernames, admins,
	// current sheet); ShortTTL covers per-column event info.
	LongTTL  time.Duration
	ShortTTL time.Duration

	// ClearColumns is how many event-info column keys a cache clear removes.
	ClearColumns int

	AdminSheet string
	// CurrentSheet fixes the schedule sheet; empty means read it from the admin sheet.
	CurrentSheet string

	Keys cache.Keys

	// Location is the schedule's wall-clock zone. Nil means time.Local.
	Location *time.Location
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Layout:       DefaultLayout(),
		SearchDays:   7,
		LongTTL:      6 * time.Hour,
		ShortTTL:     60 * time.Second,
		ClearColumns: 100,
		AdminSheet:   "Admin",
		Keys:         cache.NewKeys(false),
	}
}

func (o Options) normalized() Options {
	if o.SearchDays <= 0 {
		o.SearchDays = 7
	}
	if o.ClearColumns < 0 {
		o.ClearColumns = 0
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
