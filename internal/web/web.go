package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"attendbot/internal/config"
	"attendbot/internal/ics"
	"attendbot/internal/locator"
	appLog "attendbot/internal/log"
	"attendbot/internal/model"
	"attendbot/internal/schedule"
)

// Server exposes the schedule service over HTTP: a small JSON API, the
// chat slash-command hook and an iCalendar feed.
type Server struct {
	cfg      *config.Config
	svc      *schedule.Service
	mux      *http.ServeMux
	validate *validator.Validate
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, svc *schedule.Service) *Server {
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		mux:      http.NewServeMux(),
		validate: validator.New(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler: request logging, then basic auth when
// configured, then the routes.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		h = s.basicAuthMiddleware(h)
	}
	return requestLogger(h)
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials mean auth is off.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="AttendanceBot", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags every request with a ULID (echoed as X-Request-Id)
// and logs its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		appLog.Info("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start).String(),
		)
	})
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/event-info", s.handleEventInfo)
	s.mux.HandleFunc("GET /api/event-count", s.handleEventCount)
	s.mux.HandleFunc("GET /api/admins", s.handleAdmins)
	s.mux.HandleFunc("POST /api/clear-cache", s.handleClearCache)
	s.mux.HandleFunc("POST /api/attendance", s.handleAttendance)
	s.mux.HandleFunc("POST /slack/commands", s.handleSlashCommand)
	s.mux.HandleFunc("GET /calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEventInfo returns the event for ?value= (a date locator, "@" allowed
// for the offset prefix). An empty value means the next event.
func (s *Server) handleEventInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	value := r.URL.Query().Get("value")

	col, err := s.svc.ResolveColumn(ctx, value)
	if err != nil {
		writeFailure(w, err)
		return
	}
	info, err := s.svc.DescribeEvent(ctx, col)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeOK(w, info)
}

// handleEventCount returns the live headcount for ?value=.
func (s *Server) handleEventCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	value := r.URL.Query().Get("value")

	col, err := s.svc.ResolveColumn(ctx, value)
	if err != nil {
		writeFailure(w, err)
		return
	}
	n, err := s.svc.EventCount(ctx, col)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeOK(w, n)
}

func (s *Server) handleAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := s.svc.Admins(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeOK(w, admins)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ClearDerivedCaches(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	appLog.Info("derived caches cleared", "via", "api")
	writeOK(w, "cache cleared")
}

type attendanceRequest struct {
	User string `json:"user" validate:"required,max=100"`
	// Date is a locator ("3/2", "3/2#2"); empty means the next event.
	Date string `json:"date" validate:"max=32"`
	In   *bool  `json:"in" validate:"required"`
	Note string `json:"note" validate:"max=2048"`
}

type alertsDTO struct {
	BlackedOut bool `json:"blackedOut"`
	LateChange bool `json:"lateChange"`
	PastEvent  bool `json:"pastEvent"`
}

type attendanceResponse struct {
	Row       int              `json:"row"`
	Column    int              `json:"column"`
	Unchanged bool             `json:"unchanged"`
	Alerts    alertsDTO        `json:"alerts"`
	Event     *model.EventInfo `json:"event,omitempty"`
	Count     *int             `json:"count,omitempty"`
	Reply     string           `json:"reply"`
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	res, err := s.svc.UpdateAttendance(r.Context(), req.User, req.Date, *req.In, req.Note)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeOK(w, attendanceResponse{
		Row:       res.Row,
		Column:    res.Column,
		Unchanged: res.Unchanged,
		Alerts: alertsDTO{
			BlackedOut: res.Alerts.BlackedOut,
			LateChange: res.Alerts.LateChange,
			PastEvent:  res.Alerts.PastEvent,
		},
		Event: res.Event,
		Count: res.Count,
		Reply: SuccessReply(res, locator.Command{Note: req.Note}),
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	name := "Attendance"
	if s.cfg != nil && s.cfg.Sheets.Current != "" {
		name = s.cfg.Sheets.Current
	}
	body := ics.Render(events, ics.FeedOptions{
		Name:     name,
		Domain:   r.Host,
		Location: s.svc.Options().Location,
		Stamp:    s.svc.Now(),
	})

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// envelope is the response shape of every JSON endpoint.
type envelope struct {
	OK      bool `json:"ok"`
	Payload any  `json:"payload"`
}

// statusFor maps schedule error codes to HTTP statuses.
func statusFor(err error) int {
	switch schedule.CodeOf(err) {
	case schedule.CodeInvalidInput:
		return http.StatusBadRequest
	case schedule.CodeNotFound:
		return http.StatusNotFound
	case schedule.CodeMissingReason:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return "invalid field " + fe.Field() + ": failed " + fe.Tag()
	}
	return err.Error()
}

func writeOK(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Payload: payload})
}

func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		appLog.Error("request failed", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{OK: false, Payload: msg})
}
