package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"attendbot/internal/locator"
	appLog "attendbot/internal/log"
	"attendbot/internal/schedule"
)

type CommandKind int

const (
	CommandIn CommandKind = iota + 1
	CommandOut
	CommandHelp
	CommandClearCache
)

// SlashCommand is a chat slash-command form post, parsed at the boundary.
type SlashCommand struct {
	Kind CommandKind
	User string
	Text string
}

var errUnknownCommand = errors.New("unknown slash command")

// ParseSlashCommand reads the command, text and user_name form fields.
func ParseSlashCommand(form url.Values) (SlashCommand, error) {
	sc := SlashCommand{
		User: strings.TrimSpace(form.Get("user_name")),
		Text: strings.TrimSpace(form.Get("text")),
	}
	switch cmd := form.Get("command"); cmd {
	case "/in":
		sc.Kind = CommandIn
	case "/out":
		sc.Kind = CommandOut
	case "/help", "/h":
		sc.Kind = CommandHelp
	case "/clear-cache":
		sc.Kind = CommandClearCache
	default:
		return SlashCommand{}, fmt.Errorf("%w: %q", errUnknownCommand, cmd)
	}
	if sc.User == "" && sc.Kind != CommandHelp {
		return SlashCommand{}, errors.New("missing user_name")
	}
	return sc, nil
}

type slashResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func writeSlash(w http.ResponseWriter, text string) {
	writeJSON(w, http.StatusOK, slashResponse{ResponseType: "ephemeral", Text: text})
}

// handleSlashCommand answers with 200 and a user-facing text even when the
// update fails, so the chat client shows the reason.
func (s *Server) handleSlashCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	sc, err := ParseSlashCommand(r.PostForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()

	switch sc.Kind {
	case CommandHelp:
		writeSlash(w, helpText)

	case CommandClearCache:
		ok, err := s.svc.IsAdmin(ctx, sc.User)
		if err != nil {
			writeSlash(w, ":scrub_arjun: Couldn't check admin list: "+err.Error())
			return
		}
		if !ok {
			writeSlash(w, ":no_entry: Only admins can clear the cache.")
			return
		}
		if err := s.svc.ClearDerivedCaches(ctx); err != nil {
			writeSlash(w, ":scrub_arjun: Couldn't clear the cache: "+err.Error())
			return
		}
		appLog.Info("derived caches cleared", "via", "slash", "user", sc.User)
		writeSlash(w, ":heavy_check_mark: Cache cleared.")

	case CommandIn, CommandOut:
		cmd := locator.SplitCommand(sc.Text, s.svc.Now())
		appLog.Info("slash command", "user", sc.User, "in", sc.Kind == CommandIn, "locator", cmd.Locator.String())

		res, err := s.svc.Apply(ctx, schedule.Attendance{
			User:    sc.User,
			Locator: cmd.Locator,
			In:      sc.Kind == CommandIn,
			Note:    cmd.Note,
		})
		if err != nil {
			if schedule.CodeOf(err) == schedule.CodeBackingStore {
				appLog.Error("attendance update failed", err, "user", sc.User)
			}
			writeSlash(w, FailureReply(err))
			return
		}
		writeSlash(w, SuccessReply(res, cmd))
	}
}
