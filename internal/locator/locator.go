// Package locator parses the "date plus same-day offset" text users type
// ("3/2", "3/2#2", "3/2/24") into a Locator that identifies one schedule column.
package locator

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// OffsetPrefix separates the date from the same-day ordinal ("3/2#2").
	OffsetPrefix = "#"
	// URLSafeOffsetPrefix stands in for OffsetPrefix inside query strings.
	URLSafeOffsetPrefix = "@"

	MinOffset = 1
	MaxOffset = 9
)

// ParseResult tells the caller whether the input was a locator or should be
// treated as free text.
type ParseResult int

const (
	Success ParseResult = iota
	// AddToReason means the input is not a locator; callers fold it into the note.
	AddToReason
)

func (r ParseResult) String() string {
	switch r {
	case Success:
		return "success"
	case AddToReason:
		return "add_to_reason"
	default:
		return "unknown"
	}
}

var ErrUninitialized = errors.New("locator uninitialized")

var (
	dateRE         = regexp.MustCompile(`^1?\d/[1-3]?\d$`)
	dateWithYearRE = regexp.MustCompile(`^1?\d/[1-3]?\d/(\d{2}|\d{4})$`)
)

// Locator is a calendar date (always stamped with the year current at parse
// time, formatted m/d/yyyy without leading zeroes) plus a 1-based offset.
// The zero value is uninitialized and every accessor fails on it.
type Locator struct {
	date        string
	offset      int
	initialized bool
}

// Parse builds a Locator from user input, using now to stamp the year.
// On AddToReason the returned Locator is uninitialized.
func Parse(input string, now time.Time) (Locator, ParseResult) {
	var l Locator
	res := l.initializeAt(input, now)
	return l, res
}

// Initialize populates l from input using the current wall clock. A failed
// parse leaves l unchanged.
func (l *Locator) Initialize(input string) ParseResult {
	return l.initializeAt(input, time.Now())
}

func (l *Locator) initializeAt(input string, now time.Time) ParseResult {
	dateStr, offsetStr, _ := strings.Cut(input, OffsetPrefix)
	if dateStr == "" {
		return AddToReason
	}

	switch {
	case dateRE.MatchString(dateStr):
	case dateWithYearRE.MatchString(dateStr):
		// The supplied year is ignored.
		dateStr = dateStr[:strings.LastIndex(dateStr, "/")]
	default:
		return AddToReason
	}

	offset := MinOffset
	if offsetStr != "" {
		n, err := strconv.Atoi(offsetStr)
		if err != nil || n < MinOffset || n > MaxOffset {
			return AddToReason
		}
		offset = n
	}

	l.date = dateStr + "/" + strconv.Itoa(now.Year())
	l.offset = offset
	l.initialized = true
	return Success
}

// Valid reports whether l holds a parsed locator.
func (l Locator) Valid() bool {
	return l.initialized
}

// Date returns the date in m/d/yyyy form.
func (l Locator) Date() (string, error) {
	if !l.initialized {
		return "", ErrUninitialized
	}
	return l.date, nil
}

// Offset returns the zero-based column delta ("#2" -> 1).
func (l Locator) Offset() (int, error) {
	if !l.initialized {
		return 0, ErrUninitialized
	}
	return l.offset - 1, nil
}

// Serialize returns text that parses back to l within the same year.
func (l Locator) Serialize() (string, error) {
	if !l.initialized {
		return "", ErrUninitialized
	}
	return l.date + OffsetPrefix + strconv.Itoa(l.offset), nil
}

// URLSafe is Serialize with the offset prefix swapped for URLSafeOffsetPrefix.
func (l Locator) URLSafe() (string, error) {
	s, err := l.Serialize()
	if err != nil {
		return "", err
	}
	return strings.Replace(s, OffsetPrefix, URLSafeOffsetPrefix, 1), nil
}

func (l Locator) String() string {
	s, err := l.Serialize()
	if err != nil {
		return "unspecified"
	}
	return s
}

// FromURLSafe restores OffsetPrefix in text that travelled through a query string.
func FromURLSafe(s string) string {
	return strings.ReplaceAll(s, URLSafeOffsetPrefix, OffsetPrefix)
}
