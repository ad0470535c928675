package runtime_test

import (
	"testing"
	"time"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStepForm(t *testing.T) *form.Definition {
	t.Helper()
	def, err := form.New(
		domain.Step{Field: "firstname", Label: "Name", Prompt: "field 1 prompt"},
		domain.Step{Field: "lastname", Label: "Surname", Prompt: "field 2 prompt"},
		domain.Step{Field: "number", Label: "Phone", Prompt: "field 3 prompt"},
	)
	require.NoError(t, err)
	return def
}

var now = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func opts() runtime.TransitionOptions {
	return runtime.TransitionOptions{IdleCancelAck: true, Now: now}
}

func TestTransition_Table(t *testing.T) {
	def := threeStepForm(t)
	cancel := def.CancelKeyword

	awaiting := func(step int, answers ...string) *domain.Session {
		s := domain.NewSession("u", now)
		s.Step = step
		for i, a := range answers {
			s.Answers = append(s.Answers, domain.Answer{Field: def.StepAt(i).Field, Value: a})
		}
		return s
	}

	tests := []struct {
		name      string
		current   *domain.Session
		event     domain.Event
		idleAck   bool
		wantKinds []domain.ActionKind
		wantNext  *int // nil means cleared
	}{
		{"start from absent", nil, domain.Event{UserID: "u", Text: "/start", IsStart: true}, true,
			[]domain.ActionKind{domain.ActionPrompt}, ptr(0)},
		{"answer advances", awaiting(0), domain.Event{UserID: "u", Text: "Alice"}, true,
			[]domain.ActionKind{domain.ActionPrompt}, ptr(1)},
		{"last answer completes", awaiting(2, "a", "b"), domain.Event{UserID: "u", Text: "c"}, true,
			[]domain.ActionKind{domain.ActionSummary, domain.ActionForwardToAdmin}, nil},
		{"cancel while awaiting", awaiting(1, "a"), domain.Event{UserID: "u", Text: cancel}, true,
			[]domain.ActionKind{domain.ActionCancellationAck}, nil},
		{"cancel while idle acks by default", nil, domain.Event{UserID: "u", Text: cancel}, true,
			[]domain.ActionKind{domain.ActionCancellationAck}, nil},
		{"cancel while idle can be a no-op", nil, domain.Event{UserID: "u", Text: cancel}, false,
			nil, nil},
		{"idle chatter ignored", nil, domain.Event{UserID: "u", Text: "hello"}, true,
			nil, nil},
		{"start restarts in-progress session", awaiting(2, "a", "b"), domain.Event{UserID: "u", Text: "/start", IsStart: true}, true,
			[]domain.ActionKind{domain.ActionPrompt}, ptr(0)},
		{"stale step index resets", awaiting(7), domain.Event{UserID: "u", Text: "x"}, true,
			nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := opts()
			o.IdleCancelAck = tt.idleAck
			res := runtime.Transition(def, tt.current, tt.event, o)

			var kinds []domain.ActionKind
			for _, a := range res.Actions {
				kinds = append(kinds, a.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds)

			if tt.wantNext == nil {
				assert.Nil(t, res.Next)
			} else {
				require.NotNil(t, res.Next)
				assert.Equal(t, domain.StateAwaiting, res.Next.State)
				assert.Equal(t, *tt.wantNext, res.Next.Step)
			}
		})
	}
}

func TestTransition_DoesNotMutateCurrent(t *testing.T) {
	def := threeStepForm(t)
	current := domain.NewSession("u", now)

	res := runtime.Transition(def, current, domain.Event{UserID: "u", Text: "Alice"}, opts())

	assert.Empty(t, current.Answers)
	assert.Equal(t, 0, current.Step)
	require.NotNil(t, res.Next)
	assert.Len(t, res.Next.Answers, 1)
}

func TestTransition_PromptOffersCancel(t *testing.T) {
	def := threeStepForm(t)
	res := runtime.Transition(def, nil, domain.Event{UserID: "u", IsStart: true}, opts())

	require.Len(t, res.Actions, 1)
	assert.Equal(t, "field 1 prompt", res.Actions[0].Text)
	assert.Equal(t, []string{def.CancelKeyword}, res.Actions[0].Options)
}

func TestTransition_CancelKeywordIsCaseSensitive(t *testing.T) {
	def, err := form.Parse([]byte("cancel_keyword: Cancel\nsteps:\n  - {field: a, prompt: p}\n  - {field: b, prompt: q}\n"))
	require.NoError(t, err)
	current := domain.NewSession("u", now)

	res := runtime.Transition(def, current, domain.Event{UserID: "u", Text: "cancel"}, opts())

	require.NotNil(t, res.Next, "lower-case text is an answer, not a cancel")
	value, _ := res.Next.Answer("a")
	assert.Equal(t, "cancel", value)
}

func TestTransition_Describe(t *testing.T) {
	def := threeStepForm(t)
	res := runtime.Transition(def, nil, domain.Event{UserID: "u", IsStart: true}, opts())
	assert.Equal(t, "idle", res.From)
	assert.Equal(t, "step:0", res.To)
}

func ptr(i int) *int { return &i }
