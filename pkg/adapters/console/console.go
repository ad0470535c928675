package console

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/aretw0/intake/pkg/domain"
)

// StartCommand begins a registration when typed on its own line.
const StartCommand = "/start"

// Dispatcher handles one event synchronously. *dispatch.Dispatcher satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) error
}

// Session reads lines for a single local user and dispatches them in order.
type Session struct {
	userID string
	r      io.Reader
	d      Dispatcher
	json   bool
	logger *slog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithJSONInput accepts JSON string lines in addition to raw text.
func WithJSONInput() Option {
	return func(s *Session) {
		s.json = true
	}
}

// WithLogger sets the session's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a console session for userID reading from r.
func NewSession(userID string, r io.Reader, d Dispatcher, opts ...Option) *Session {
	if r == nil {
		r = os.Stdin
	}
	s := &Session{
		userID: userID,
		r:      r,
		d:      d,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type line struct {
	text string
	err  error
}

// Run dispatches every line until EOF or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	lines := make(chan line)
	go s.pump(ctx, lines)

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				return l.err
			}
			seq++
			ev := s.event(seq, l.text)
			if err := s.d.Dispatch(ctx, ev); err != nil {
				if errors.Is(err, dispatch.ErrInputTooLarge) || errors.Is(err, dispatch.ErrInvalidUTF8) {
					s.logger.Warn("input rejected", "err", err)
					continue
				}
				return err
			}
		}
	}
}

func (s *Session) pump(ctx context.Context, out chan<- line) {
	defer close(out)
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case out <- line{text: scanner.Text()}:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case out <- line{err: err}:
		case <-ctx.Done():
		}
	}
}

func (s *Session) event(seq int, raw string) domain.Event {
	text := strings.TrimRight(raw, "\r")
	if s.json {
		var val string
		if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &val); err == nil {
			text = val
		}
	}
	return domain.Event{
		ID:      strconv.Itoa(seq),
		UserID:  s.userID,
		Text:    text,
		IsStart: strings.TrimSpace(text) == StartCommand,
	}
}
