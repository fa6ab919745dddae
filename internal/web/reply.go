package web

import (
	"errors"
	"fmt"
	"strings"

	"attendbot/internal/locator"
	"attendbot/internal/schedule"
)

// Chat reply fragments.
const (
	successPrefix  = ":heavy_check_mark: Updated spreadsheet. "
	noChangePrefix = ":thumbsup_all: No change necessary. "
	failurePrefix  = ":scrub_arjun: Couldn't update the spreadsheet: "

	dateHelpInfo     = "\n:information_source: If you just want to choose the next upcoming practice, no need to specify the date"
	lateChangeAlert  = "\n:exclamation: If you're changing to a no this close to practice, please send a note to your team explaining."
	pastChangeAlert  = "\n:exclamation: The date you just updated is in the past."
	blackedOutAlert  = "\n:information_source: Your cell was blacked out. You may want to check the spreadsheet."
	noteAddedAlertFm = "\n:information_source: Added note \"%s\" to your cell"
)

const helpText = "Thanks for using AttendanceBot!\n\n" +
	":information_source: Just so you know, all you ever need to do is type */in* (in any channel) to automatically put a yes in the spreadsheet for the next practice. But for more details, here are the available commands:\n\n" +
	":one: */in* [date] [note]: marks you as a yes on the spreadsheet for the given date. If you don't specify a date, the default will be the next practice. The note is optional.\n\n" +
	":two: */out* [date] [reason]: marks you as a no on the spreadsheet for the given date. If you don't specify a date, the default will be the next practice. The reason is _mandatory_.\n\n" +
	":three: */help*: the command you just used!\n\n" +
	"If there are two events on the same day, add an offset to the date: *3/2#2* is the second event on 3/2."

// attendanceSentence is "You're in for ..." / "You're out for ...", with the
// headcount clause when the count is known.
func attendanceSentence(res schedule.AttendanceResult) string {
	var b strings.Builder
	if res.In {
		desc := "the event"
		if res.Event != nil {
			desc = res.Event.Description(true)
		}
		fmt.Fprintf(&b, "You're in for %s!", desc)
		if res.Count != nil && *res.Count != 1 {
			others := *res.Count - 1
			if others == 1 {
				b.WriteString(" So far 1 other person is in as well!")
			} else {
				fmt.Fprintf(&b, " So far %d other people are in as well!", others)
			}
		}
		return b.String()
	}

	desc := "the event"
	if res.Event != nil {
		desc = res.Event.Description(false)
	}
	fmt.Fprintf(&b, "You're out for %s.", desc)
	if res.Count != nil && *res.Count != 0 {
		noun := "people"
		if *res.Count == 1 {
			noun = "person"
		}
		fmt.Fprintf(&b, " At least %d %s (so far) will be missing you :cry:.", *res.Count, noun)
	}
	return b.String()
}

// SuccessReply renders the acknowledgement for a completed update.
func SuccessReply(res schedule.AttendanceResult, cmd locator.Command) string {
	var b strings.Builder
	if res.Unchanged {
		b.WriteString(noChangePrefix)
	} else {
		b.WriteString(successPrefix)
	}
	b.WriteString(attendanceSentence(res))
	if res.Alerts.BlackedOut {
		b.WriteString(blackedOutAlert)
	}
	if res.Alerts.LateChange {
		b.WriteString(lateChangeAlert)
	}
	if res.Alerts.PastEvent {
		b.WriteString(pastChangeAlert)
	}
	if cmd.NoteAdded {
		fmt.Fprintf(&b, noteAddedAlertFm, cmd.Note)
	}
	return b.String()
}

// FailureReply renders err for the user. A missing date gets a hint about
// picking the next event instead.
func FailureReply(err error) string {
	msg := failurePrefix + err.Error()
	if errors.Is(err, schedule.ErrDateNotFound) {
		msg += dateHelpInfo
	}
	return msg
}
