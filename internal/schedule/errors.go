package schedule

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeNotFound      Code = "NOT_FOUND"
	CodeMissingReason Code = "MISSING_REASON"
	CodeBackingStore  Code = "BACKING_STORE"
)

var (
	ErrInvalidLocator  = errors.New("invalid date string")
	ErrNoUpcomingEvent = errors.New("no upcoming event")
	ErrDateNotFound    = errors.New("date not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMissingReason   = errors.New("missing reason")
)

// Error carries a user-facing message plus a Code for transports.
type Error struct {
	Code    Code
	Message string
	// Suggestion is the next upcoming event date for ErrDateNotFound, if known.
	Suggestion string
	Err        error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the Code of err, or CodeBackingStore for foreign errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeBackingStore
}

func invalidLocator(text string) *Error {
	return &Error{Code: CodeInvalidInput, Message: "invalid date string " + text, Err: ErrInvalidLocator}
}

func noUpcomingEvent(days int) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("no event in the next %d days.", days),
		Err:     ErrNoUpcomingEvent,
	}
}

func dateNotFound(date, next string) *Error {
	msg := "couldn't find any event on " + date + "."
	if next != "" {
		msg += " Next event is on " + next + "."
	}
	return &Error{Code: CodeNotFound, Message: msg, Suggestion: next, Err: ErrDateNotFound}
}

func userNotFound(user string) *Error {
	return &Error{Code: CodeNotFound, Message: "username " + user + " not found on spreadsheet!", Err: ErrUserNotFound}
}

func missingReason() *Error {
	return &Error{Code: CodeMissingReason, Message: "please add a reason for why you're missing.", Err: ErrMissingReason}
}

func backingStore(op string, err error) *Error {
	return &Error{Code: CodeBackingStore, Message: op + ": " + err.Error(), Err: err}
}
