package console

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/intake/pkg/dispatch"
)

var markup = strings.NewReplacer("<b>", "", "</b>", "")

// PlainText removes the HTML the renderer produces.
func PlainText(s string) string {
	return html.UnescapeString(markup.Replace(s))
}

// Messenger writes outbound messages to a terminal.
type Messenger struct {
	mu    sync.Mutex
	w     io.Writer
	admin string
	json  bool
}

// MessengerOption configures a Messenger.
type MessengerOption func(*Messenger)

// WithJSON writes one JSON object per message instead of text.
func WithJSON() MessengerOption {
	return func(m *Messenger) {
		m.json = true
	}
}

// NewMessenger creates a Messenger. Messages addressed to admin are labelled.
func NewMessenger(w io.Writer, admin string, opts ...MessengerOption) *Messenger {
	if w == nil {
		w = os.Stdout
	}
	m := &Messenger{w: w, admin: admin}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send implements dispatch.Messenger.
func (m *Messenger) Send(ctx context.Context, msg dispatch.Outbound) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.json {
		return json.NewEncoder(m.w).Encode(msg)
	}

	text := strings.TrimSpace(PlainText(msg.Text))
	if msg.To == m.admin {
		text = "[admin]\n" + text
	}
	if _, err := fmt.Fprintln(m.w, text); err != nil {
		return err
	}
	for _, b := range msg.Buttons {
		if _, err := fmt.Fprintf(m.w, "  [%s]\n", b); err != nil {
			return err
		}
	}
	return nil
}
