package locator

import (
	"strings"
	"time"
)

// Command is slash-command text split into its locator and note parts.
type Command struct {
	// Locator is uninitialized when the user gave no date, meaning "next event".
	Locator Locator
	Note    string
	// NoteAdded is set when the first word was not a locator and was folded
	// into Note instead.
	NoteAdded bool
}

// SplitCommand treats the first space-separated word of text as a locator
// candidate and the remainder as the note.
func SplitCommand(text string, now time.Time) Command {
	first, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	rest = strings.TrimSpace(rest)

	loc, res := Parse(first, now)
	if res == Success {
		return Command{Locator: loc, Note: rest}
	}
	if first == "" {
		return Command{Note: rest}
	}

	note := first
	if rest != "" {
		note += " " + rest
	}
	return Command{Note: note, NoteAdded: true}
}
