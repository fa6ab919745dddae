package model

// Attendance markers written into a user's cell.
const (
	StatusIn  = "y"
	StatusOut = "n"
)

// EventInfo describes one event column of the schedule. It is derived from
// the sheet on a cache miss and always replaced wholesale, never patched.
//
// JSON field names are shared with the cached payloads and the event-info API.
type EventInfo struct {
	// Type is the description cell, lowercased when it is a single word.
	Type     string `json:"eventType"`
	Date     string `json:"eventDate"` // m/d/yyyy as displayed in the sheet
	Time     string `json:"eventTime"`
	Location string `json:"eventLocation"`
	Count    int    `json:"count"`

	// IncludeTimeLoc is false for highlighted (non-white) event columns,
	// whose time and location are left out of descriptions.
	IncludeTimeLoc bool `json:"includeTimeLoc"`
}

// Description renders "{type} on {date} from {time} at {location}", or the
// short "{type} on {date}" when time/location are excluded either by the
// caller or by the event itself.
func (e EventInfo) Description(includeTimeLoc bool) string {
	if includeTimeLoc && e.IncludeTimeLoc {
		return e.Full()
	}
	return e.Short()
}

func (e EventInfo) Full() string {
	return e.Type + " on " + e.Date + " from " + e.Time + " at " + e.Location
}

func (e EventInfo) Short() string {
	return e.Type + " on " + e.Date
}
