package cache

import "strconv"

// Keys names every derived value the schedule core caches. Testing keys get
// their own namespace so a test workspace never reads production entries.
type Keys struct {
	testing bool
}

func NewKeys(testing bool) Keys {
	return Keys{testing: testing}
}

func (k Keys) name(base string) string {
	if k.testing {
		return base + "_testing"
	}
	return base
}

func (k Keys) DateRow() string      { return k.name("date_row") }
func (k Keys) UserColumn() string   { return k.name("user_col") }
func (k Keys) Admins() string       { return k.name("admins") }
func (k Keys) CurrentSheet() string { return k.name("current_sheet") }

func (k Keys) EventInfo(col int) string {
	prefix := "event_info_col_"
	if k.testing {
		prefix = "event_info_col_testing_"
	}
	return prefix + strconv.Itoa(col)
}

// Derived lists every key cleared by an explicit cache reset, including
// event info for columns [0, columns).
func (k Keys) Derived(columns int) []string {
	out := []string{k.DateRow(), k.UserColumn(), k.Admins(), k.CurrentSheet()}
	for i := 0; i < columns; i++ {
		out = append(out, k.EventInfo(i))
	}
	return out
}
