package mutation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmia/marginalia/internal/engine"
)

func TestStartCompleteLifecycle(t *testing.T) {
	r := NewRecorder()
	key := engine.MutationKey("txn-1")

	r.StartMutation(key, engine.MutationKindCreate, "proposed", nil)

	m, ok := r.Get(key)
	require.True(t, ok)
	assert.Equal(t, StatePending, m.State)
	assert.Equal(t, engine.MutationKindCreate, m.Kind)
	assert.Equal(t, "proposed", m.Proposed)
	assert.Nil(t, m.Prior)
	assert.False(t, m.StartedAt.IsZero())

	r.CompleteMutation(key)
	m, _ = r.Get(key)
	assert.Equal(t, StateCompleted, m.State)
	assert.False(t, m.SettledAt.IsZero())
	assert.NoError(t, m.Reason)
}

func TestFailKeepsReason(t *testing.T) {
	r := NewRecorder()
	key := engine.MutationKey("txn-2")
	cause := errors.New("stream read failed")

	r.StartMutation(key, engine.MutationKindCreate, nil, nil)
	r.FailMutation(key, cause)

	m, ok := r.Get(key)
	require.True(t, ok)
	assert.Equal(t, StateFailed, m.State)
	assert.ErrorIs(t, m.Reason, cause)
}

func TestSettleUnknownKeyIgnored(t *testing.T) {
	r := NewRecorder()
	r.CompleteMutation("never-started")
	r.FailMutation("never-started", errors.New("x"))
	assert.Equal(t, 0, r.Len())
}

func TestRestartReplacesSettledRecord(t *testing.T) {
	r := NewRecorder()
	key := engine.MutationKey("txn-3")

	r.StartMutation(key, engine.MutationKindCreate, "first", nil)
	r.FailMutation(key, errors.New("cancelled"))
	r.StartMutation(key, engine.MutationKindCreate, "second", "first")

	m, _ := r.Get(key)
	assert.Equal(t, StatePending, m.State)
	assert.Equal(t, "second", m.Proposed)
	assert.Equal(t, "first", m.Prior)
	assert.NoError(t, m.Reason, "a fresh start clears the old failure")
}

func TestStaleFailureIsRecoverable(t *testing.T) {
	// A revoked attempt may report failure after its replacement already
	// started under the same key. The later completion must still win.
	r := NewRecorder()
	key := engine.MutationKey("txn-4")

	r.StartMutation(key, engine.MutationKindCreate, "second attempt", nil)
	r.FailMutation(key, errors.New("context canceled")) // stale, from the first attempt
	r.CompleteMutation(key)

	m, _ := r.Get(key)
	assert.Equal(t, StateCompleted, m.State)
}

func TestPendingAndFailedViews(t *testing.T) {
	r := NewRecorder()

	r.StartMutation("a", engine.MutationKindCreate, nil, nil)
	r.StartMutation("b", engine.MutationKindCreate, nil, nil)
	r.StartMutation("c", engine.MutationKindCreate, nil, nil)
	r.CompleteMutation("a")
	r.FailMutation("b", errors.New("boom"))

	pending := r.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "c", pending[0].Key)

	failed := r.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].Key)

	assert.Equal(t, 3, r.Len())

	r.Reset()
	assert.Equal(t, 0, r.Len())
}
