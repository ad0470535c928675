package intake_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/dispatch"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/form"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inbox struct {
	mu   sync.Mutex
	msgs []dispatch.Outbound
}

func (i *inbox) Send(ctx context.Context, msg dispatch.Outbound) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, msg)
	return nil
}

func TestNew_Validation(t *testing.T) {
	_, err := intake.New(nil, "admin")
	assert.Error(t, err)

	_, err = intake.New(&inbox{}, "")
	assert.Error(t, err)

	_, err = intake.New(&inbox{}, "admin", intake.WithForm(&form.Definition{}))
	assert.Error(t, err)
}

func TestBot_Registration(t *testing.T) {
	def, err := form.Parse([]byte(`
cancel_keyword: stop
completed_text: Done
cancelled_text: Stopped
steps:
  - {field: name, label: Name, prompt: Your name?}
`))
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg, []string{"name"})
	store := memory.NewStore()
	box := &inbox{}

	bot, err := intake.New(box, "admin",
		intake.WithForm(def),
		intake.WithStore(store),
		intake.WithMetrics(metrics),
	)
	require.NoError(t, err)
	defer bot.Close()

	ctx := context.Background()
	require.NoError(t, bot.Dispatch(ctx, domain.Event{UserID: "1", IsStart: true}))
	require.NoError(t, bot.Dispatch(ctx, domain.Event{UserID: "1", Text: "Ann"}))

	require.Len(t, box.msgs, 3)
	assert.Equal(t, "Your name?", box.msgs[0].Text)
	assert.Equal(t, "Done\n\nName: <b>Ann</b>", box.msgs[1].Text)
	assert.Equal(t, "admin", box.msgs[2].To)
	assert.Equal(t, "Name: <b>Ann</b>", box.msgs[2].Text)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Sessions.WithLabelValues(string(domain.EventSessionComplete))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Answers.WithLabelValues("name")))

	ids, err := bot.Sessions().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestBot_IdleCancelPolicy(t *testing.T) {
	ctx := context.Background()
	cancel := form.Default().CancelKeyword

	bot, err := intake.New(&inbox{}, "admin")
	require.NoError(t, err)
	defer bot.Close()
	actions, err := bot.Handle(ctx, domain.Event{UserID: "1", Text: cancel})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionCancellationAck, actions[0].Kind)

	quiet, err := intake.New(&inbox{}, "admin", intake.WithIdleCancelAck(false))
	require.NoError(t, err)
	defer quiet.Close()
	actions, err = quiet.Handle(ctx, domain.Event{UserID: "1", Text: cancel})
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, intake.Version)
}
