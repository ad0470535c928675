package runtime

import (
	"fmt"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/form"
)

// TransitionOptions carries the policy knobs of a transition.
type TransitionOptions struct {
	IdleCancelAck bool
	Now           time.Time
}

// Result is the outcome of a single transition.
type Result struct {
	// Next is the session to store; nil means the user is idle (session cleared).
	Next    *domain.Session
	Actions []domain.Action
	Events  []domain.LifecycleEvent

	// From and To describe the state change for logging ("idle", "step:2", ...).
	From string
	To   string

	// Reset is set when the stored session pointed past the end of the form.
	Reset bool
}

// Transition computes the next session and actions for an event. It is pure:
// the current session is never mutated.
//
// Rules, in priority order:
//  1. cancel keyword: clear the session and acknowledge (idle policy applies when nothing is in progress)
//  2. start command: begin at step 0 with no answers, restarting any session in progress
//  3. awaiting step i: record the text; prompt step i+1, or summarize and forward after the last step
//  4. anything else while idle: ignored
func Transition(def *form.Definition, current *domain.Session, ev domain.Event, opts TransitionOptions) Result {
	res := Result{From: describe(current)}

	if !current.IsIdle() && (current.Step < 0 || current.Step >= def.StepCount()) {
		current = nil
		res.Reset = true
	}

	switch {
	case ev.Text == def.CancelKeyword:
		res.Next = nil
		if !current.IsIdle() || opts.IdleCancelAck {
			res.Actions = []domain.Action{{Kind: domain.ActionCancellationAck, Text: def.CancelledText}}
			res.Events = append(res.Events, lifecycle(domain.EventSessionCancel, ev.UserID, stepOf(current), "", opts.Now))
		} else {
			res.Events = append(res.Events, lifecycle(domain.EventInputIgnored, ev.UserID, -1, "", opts.Now))
		}

	case ev.IsStart:
		res.Next = domain.NewSession(ev.UserID, opts.Now)
		res.Actions = []domain.Action{prompt(def, 0)}
		res.Events = append(res.Events, lifecycle(domain.EventSessionStart, ev.UserID, 0, "", opts.Now))

	case !current.IsIdle():
		step := def.StepAt(current.Step)
		next := current.Clone()
		next.Answers = append(next.Answers, domain.Answer{Field: step.Field, Value: ev.Text})
		next.UpdatedAt = opts.Now
		res.Events = append(res.Events, lifecycle(domain.EventAnswerRecorded, ev.UserID, current.Step, step.Field, opts.Now))

		if def.IsLast(current.Step) {
			next.State = domain.StateComplete
			record := def.Record(next)
			res.Next = nil
			res.Actions = []domain.Action{
				{Kind: domain.ActionSummary, Text: def.CompletedText, Fields: record},
				{Kind: domain.ActionForwardToAdmin, Fields: record},
			}
			res.Events = append(res.Events, lifecycle(domain.EventSessionComplete, ev.UserID, current.Step, "", opts.Now))
		} else {
			next.Step = current.Step + 1
			res.Next = next
			res.Actions = []domain.Action{prompt(def, next.Step)}
		}

	default:
		res.Next = nil
		res.Events = append(res.Events, lifecycle(domain.EventInputIgnored, ev.UserID, -1, "", opts.Now))
	}

	res.To = describe(res.Next)
	return res
}

func prompt(def *form.Definition, index int) domain.Action {
	return domain.Action{
		Kind:    domain.ActionPrompt,
		Text:    def.StepAt(index).Prompt,
		Options: []string{def.CancelKeyword},
	}
}

func lifecycle(typ domain.EventType, userID string, step int, field string, now time.Time) domain.LifecycleEvent {
	return domain.LifecycleEvent{
		Timestamp: now,
		Type:      typ,
		UserID:    userID,
		Step:      step,
		Field:     field,
	}
}

func stepOf(s *domain.Session) int {
	if s.IsIdle() {
		return -1
	}
	return s.Step
}

func describe(s *domain.Session) string {
	if s.IsIdle() {
		return string(domain.StateIdle)
	}
	return fmt.Sprintf("step:%d", s.Step)
}
