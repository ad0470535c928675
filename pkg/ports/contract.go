package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-test-user-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		session := domain.NewSession(userID, time.Now().UTC())
		session.Step = 1
		session.Answers = []domain.Answer{{Field: "firstname", Value: "Alice"}}

		require.NoError(t, store.Set(ctx, userID, session), "Set should not return error")

		loaded, err := store.Get(ctx, userID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, domain.StateAwaiting, loaded.State)
		assert.Equal(t, 1, loaded.Step)
		assert.Equal(t, session.Answers, loaded.Answers)
	})

	t.Run("Get Returns Isolated Copy", func(t *testing.T) {
		loaded, err := store.Get(ctx, userID)
		require.NoError(t, err)
		loaded.Answers[0].Value = "mutated"
		loaded.Step = 99

		again, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", again.Answers[0].Value)
		assert.Equal(t, 1, again.Step)
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		session := domain.NewSession(userID, time.Now().UTC())
		require.NoError(t, store.Set(ctx, userID, session))

		loaded, err := store.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded.Step)
		assert.Empty(t, loaded.Answers)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.Get(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, userID, domain.NewSession(userID, time.Now().UTC())))

		require.NoError(t, store.Clear(ctx, userID), "Clear should not return error")

		_, err := store.Get(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Clear should return ErrSessionNotFound")

		assert.NoError(t, store.Clear(ctx, userID), "Clear must be idempotent")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		require.NoError(t, store.Set(ctx, id1, domain.NewSession(id1, time.Now().UTC())))
		require.NoError(t, store.Set(ctx, id2, domain.NewSession(id2, time.Now().UTC())))

		defer func() {
			_ = store.Clear(ctx, id1)
			_ = store.Clear(ctx, id2)
		}()

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}
