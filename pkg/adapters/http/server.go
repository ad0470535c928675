package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/form"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Processor runs an event through the engine, sends any forwarded record to
// the admin and returns the replies meant for the user.
// *dispatch.Dispatcher satisfies it.
type Processor interface {
	Respond(ctx context.Context, ev domain.Event) ([]dispatch.Outbound, error)
}

// Sessions is the read and reset surface of the session layer.
// *session.Manager satisfies it.
type Sessions interface {
	Get(ctx context.Context, userID string) (*domain.Session, error)
	Clear(ctx context.Context, userID string) error
	List(ctx context.Context) ([]string, error)
}

// EventRequest is the body of POST /v1/events.
type EventRequest struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id,omitempty"`
	Text   string `json:"text"`
	Start  bool   `json:"start,omitempty"`
}

// EventResponse is returned by POST /v1/events.
type EventResponse struct {
	Messages []dispatch.Outbound `json:"messages"`
}

// SessionView is the body of GET /v1/sessions/{userID}. It reports progress
// only; answer values are never exposed over HTTP.
type SessionView struct {
	UserID    string              `json:"user_id"`
	State     domain.SessionState `json:"state"`
	Step      int                 `json:"step"`
	Field     string              `json:"field,omitempty"`
	Answered  int                 `json:"answered"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Server serves the ingest and admin API.
type Server struct {
	processor Processor
	sessions  Sessions
	form      *form.Definition
	streams   *StreamManager
	gatherer  prometheus.Gatherer
	token     string
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithGatherer exposes metrics from g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithStreams enables GET /v1/stream backed by sm.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithToken requires "Authorization: Bearer <token>" on every /v1 route.
// An empty token leaves /v1 open.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// NewHandler builds the HTTP handler. Only the public routes (/healthz, /info
// and /v1/form) allow cross-origin requests.
func NewHandler(p Processor, sessions Sessions, def *form.Definition, opts ...Option) http.Handler {
	s := &Server{
		processor: p,
		sessions:  sessions,
		form:      def,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(enableCORS)
		r.Get("/healthz", s.GetHealth)
		r.Get("/info", s.GetInfo)
		r.Get("/v1/form", s.GetForm)
		r.Options("/healthz", preflight)
		r.Options("/info", preflight)
		r.Options("/v1/form", preflight)
	})
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/v1/events", s.PostEvent)
		r.Get("/v1/sessions", s.ListSessions)
		r.Get("/v1/sessions/{userID}", s.GetSession)
		r.Delete("/v1/sessions/{userID}", s.DeleteSession)
		if s.streams != nil {
			r.Get("/v1/stream", s.SubscribeEvents)
		}
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="intake"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostEvent handles POST /v1/events.
func (s *Server) PostEvent(w http.ResponseWriter, r *http.Request) {
	var body EventRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("PostEvent: invalid request body", "err", err)
		return
	}

	ev := domain.Event{
		ID:      body.ID,
		UserID:  body.UserID,
		ChatID:  body.ChatID,
		Text:    body.Text,
		IsStart: body.Start,
	}
	msgs, err := s.processor.Respond(r.Context(), ev)
	if err != nil {
		status := statusFor(err)
		http.Error(w, fmt.Sprintf("Event rejected: %v", err), status)
		if status >= http.StatusInternalServerError {
			s.logger.Error("PostEvent failed", "user_id", ev.UserID, "err", err)
		}
		return
	}
	if msgs == nil {
		msgs = []dispatch.Outbound{}
	}
	writeJSON(w, s.logger, http.StatusOK, EventResponse{Messages: msgs})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dispatch.ErrInvalidEvent),
		errors.Is(err, dispatch.ErrInvalidUTF8):
		return http.StatusBadRequest
	case errors.Is(err, dispatch.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dispatch.ErrDuplicateEvent):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetForm handles GET /v1/form.
func (s *Server) GetForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.form)
}

// ListSessions handles GET /v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("List error: %v", err), http.StatusInternalServerError)
		s.logger.Error("ListSessions failed", "err", err)
		return
	}
	sort.Strings(ids)
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, s.logger, http.StatusOK, map[string][]string{"sessions": ids})
}

// GetSession handles GET /v1/sessions/{userID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sess, err := s.sessions.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Get error: %v", err), http.StatusInternalServerError)
		s.logger.Error("GetSession failed", "user_id", userID, "err", err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.view(sess))
}

func (s *Server) view(sess *domain.Session) SessionView {
	v := SessionView{
		UserID:    sess.UserID,
		State:     sess.State,
		Step:      sess.Step,
		Answered:  len(sess.Answers),
		StartedAt: sess.StartedAt,
		UpdatedAt: sess.UpdatedAt,
	}
	if sess.State == domain.StateAwaiting && sess.Step >= 0 && sess.Step < s.form.StepCount() {
		v.Field = s.form.StepAt(sess.Step).Field
	}
	return v
}

// DeleteSession handles DELETE /v1/sessions/{userID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.sessions.Clear(r.Context(), userID); err != nil {
		http.Error(w, fmt.Sprintf("Clear error: %v", err), http.StatusInternalServerError)
		s.logger.Error("DeleteSession failed", "user_id", userID, "err", err)
		return
	}
	s.logger.Info("session cleared via api", "user_id", userID)
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"app":     "intake",
		"version": strings.TrimSpace(intake.Version),
		"steps":   s.form.StepCount(),
	})
}

// SubscribeEvents handles GET /v1/stream?user_id=... (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.streams.Subscribe(userID)
	defer cancel()
	s.logger.Debug("sse subscribed", "user_id", userID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
