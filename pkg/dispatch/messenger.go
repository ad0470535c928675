package dispatch

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/cenkalti/backoff/v5"
)

// Outbound is a rendered message ready for a transport.
type Outbound struct {
	// Kind is the action this message was rendered from.
	Kind domain.ActionKind `json:"kind"`

	// To is the transport address (chat ID) of the recipient.
	To string `json:"to"`

	// Text is HTML; every user-supplied value in it is already escaped.
	Text string `json:"text"`

	// Buttons, when set, are offered as a one-row reply keyboard.
	Buttons []string `json:"buttons,omitempty"`

	// RemoveButtons asks the transport to clear any reply keyboard.
	RemoveButtons bool `json:"remove_buttons,omitempty"`
}

// Messenger delivers rendered messages. Implementations wrap errors that
// retrying cannot fix with Permanent.
type Messenger interface {
	Send(ctx context.Context, msg Outbound) error
}

// MessengerFunc adapts a function to the Messenger interface.
type MessengerFunc func(ctx context.Context, msg Outbound) error

// Send calls f.
func (f MessengerFunc) Send(ctx context.Context, msg Outbound) error {
	return f(ctx, msg)
}

// Permanent marks a delivery error as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
