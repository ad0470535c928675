package domain

// ActionKind tags an outbound action.
type ActionKind string

// Standard Action Kinds
const (
	// ActionPrompt asks the originating user for the next answer.
	// Text: the prompt. Options: affordances to offer (the cancel keyword).
	ActionPrompt ActionKind = "prompt"

	// ActionSummary confirms the completed record to the originating user.
	// Fields: the record in form order.
	ActionSummary ActionKind = "summary"

	// ActionForwardToAdmin relays the completed record to the administrative recipient.
	// Fields: the record in form order.
	ActionForwardToAdmin ActionKind = "forward_to_admin"

	// ActionCancellationAck confirms that the conversation was cancelled.
	ActionCancellationAck ActionKind = "cancellation_ack"
)

// Field is a labelled value of a compiled record. Value is untrusted user input.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Action is a unit of engine output. The host decides how to present it.
type Action struct {
	Kind    ActionKind `json:"kind"`
	Text    string     `json:"text,omitempty"`
	Options []string   `json:"options,omitempty"`
	Fields  []Field    `json:"fields,omitempty"`
}

// Event is an inbound user message, already stripped of transport details.
type Event struct {
	// ID identifies the transport message (used for dedupe). May be empty.
	ID string `json:"id,omitempty"`

	UserID string `json:"user_id"`

	// ChatID is where replies go. Defaults to UserID when empty.
	ChatID string `json:"chat_id,omitempty"`

	Text    string `json:"text"`
	IsStart bool   `json:"is_start"`
}

// ReplyTo returns the address replies for this event should be sent to.
func (e Event) ReplyTo() string {
	if e.ChatID != "" {
		return e.ChatID
	}
	return e.UserID
}
