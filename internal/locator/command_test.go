package locator

import "testing"

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantLoc   string
		wantNote  string
		noteAdded bool
	}{
		{name: "empty", text: "", wantLoc: "unspecified", wantNote: ""},
		{name: "date only", text: "3/2", wantLoc: "3/2/2018#1", wantNote: ""},
		{name: "date and note", text: "3/2#2 running late", wantLoc: "3/2/2018#2", wantNote: "running late"},
		{name: "free text", text: "flu", wantLoc: "unspecified", wantNote: "flu", noteAdded: true},
		{name: "offset first word", text: "#2 flu", wantLoc: "unspecified", wantNote: "#2 flu", noteAdded: true},
		{name: "bad offset", text: "3/2#12 exams", wantLoc: "unspecified", wantNote: "3/2#12 exams", noteAdded: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := SplitCommand(tc.text, fixedNow)
			if got := cmd.Locator.String(); got != tc.wantLoc {
				t.Fatalf("expected locator %s, got %s", tc.wantLoc, got)
			}
			if cmd.Note != tc.wantNote {
				t.Fatalf("expected note %q, got %q", tc.wantNote, cmd.Note)
			}
			if cmd.NoteAdded != tc.noteAdded {
				t.Fatalf("expected NoteAdded=%v, got %v", tc.noteAdded, cmd.NoteAdded)
			}
		})
	}
}
