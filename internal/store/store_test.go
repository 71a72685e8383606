package store

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmia/marginalia/internal/model"
)

func ann(id, entityID, text string) model.Annotation {
	return model.Annotation{
		ID:         id,
		EntityKind: model.KindTransaction,
		EntityID:   entityID,
		Text:       text,
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := New()

	_, ok := s.Get("txn-1")
	assert.False(t, ok)

	s.Upsert("txn-1", ann("a1", "txn-1", "hello"))

	got, ok := s.Get("txn-1")
	require.True(t, ok)
	assert.Equal(t, "a1", got.ID)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, 1, s.Len())
}

func TestSnapshotIsStable(t *testing.T) {
	s := New()
	s.Upsert("txn-1", ann("a1", "txn-1", "first"))

	before := s.Snapshot()
	s.Upsert("txn-1", ann("a2", "txn-1", "second"))
	after := s.Snapshot()

	// The old snapshot still shows the old value: mutation replaced the map
	// rather than editing it.
	assert.Equal(t, "first", before["txn-1"].Text)
	assert.Equal(t, "second", after["txn-1"].Text)
	assert.NotEqual(t,
		reflect.ValueOf(before).Pointer(),
		reflect.ValueOf(after).Pointer(),
		"upsert should swap in a new map")
}

func TestSnapshotStableAcrossRemove(t *testing.T) {
	s := New()
	s.Upsert("txn-1", ann("a1", "txn-1", "keep"))
	s.Upsert("txn-2", ann("a2", "txn-2", "drop"))

	before := s.Snapshot()
	removed, ok := s.Remove("txn-2")
	require.True(t, ok)
	assert.Equal(t, "a2", removed.ID)

	assert.Len(t, before, 2, "old snapshot keeps the removed entry")
	assert.Len(t, s.Snapshot(), 1)
}

func TestRemoveMissing(t *testing.T) {
	s := New()
	v := s.Version()

	_, ok := s.Remove("nope")
	assert.False(t, ok)
	assert.Equal(t, v, s.Version(), "removing a missing entity is not a change")
}

func TestUpsertIf(t *testing.T) {
	s := New()
	s.Upsert("txn-1", ann("a1", "txn-1", "live"))

	applied := s.UpsertIf("txn-1", "a1", ann("a1", "txn-1", "live more"))
	assert.True(t, applied)
	got, _ := s.Get("txn-1")
	assert.Equal(t, "live more", got.Text)

	// A stale writer expecting the old attempt loses.
	s.Upsert("txn-1", ann("a2", "txn-1", "newer attempt"))
	applied = s.UpsertIf("txn-1", "a1", ann("a1", "txn-1", "stale write"))
	assert.False(t, applied)
	got, _ = s.Get("txn-1")
	assert.Equal(t, "newer attempt", got.Text)

	// A cleared slot cannot be resurrected.
	s.Remove("txn-1")
	applied = s.UpsertIf("txn-1", "a2", ann("a2", "txn-1", "ghost"))
	assert.False(t, applied)
	assert.Equal(t, 0, s.Len())
}

func TestUpdate(t *testing.T) {
	s := New()
	s.Upsert("txn-1", ann("a1", "txn-1", "text"))

	ok := s.Update("txn-1", func(a model.Annotation) model.Annotation {
		a.IsDeleting = true
		return a
	})
	require.True(t, ok)
	got, _ := s.Get("txn-1")
	assert.True(t, got.IsDeleting)

	ok = s.Update("missing", func(a model.Annotation) model.Annotation { return a })
	assert.False(t, ok)
}

func TestErrorSlot(t *testing.T) {
	s := New()

	_, ok := s.LastError()
	assert.False(t, ok)

	s.SetError("request failed with status 500")
	msg, ok := s.LastError()
	require.True(t, ok)
	assert.Equal(t, "request failed with status 500", msg)

	// Setting a new error replaces the old one.
	s.SetError("stream read failed")
	msg, _ = s.LastError()
	assert.Equal(t, "stream read failed", msg)

	s.ClearError()
	_, ok = s.LastError()
	assert.False(t, ok)

	// Clearing an already clear slot changes nothing.
	v := s.Version()
	s.ClearError()
	assert.Equal(t, v, s.Version())
}

func TestWatchSignalsOnChange(t *testing.T) {
	s := New()
	ch, cancel := s.Watch()
	defer cancel()

	s.Upsert("txn-1", ann("a1", "txn-1", "x"))

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending signal after upsert")
	}
}

func TestWatchCoalesces(t *testing.T) {
	s := New()
	ch, cancel := s.Watch()
	defer cancel()

	for i := 0; i < 10; i++ {
		s.Upsert("txn-1", ann("a1", "txn-1", fmt.Sprintf("rev %d", i)))
	}

	// Many changes collapse into at least one pending signal; re-reading
	// shows the latest state.
	<-ch
	got, ok := s.Get("txn-1")
	require.True(t, ok)
	assert.Equal(t, "rev 9", got.Text)

	select {
	case <-ch:
		// A second buffered signal is allowed but nothing beyond it.
	default:
	}
	select {
	case <-ch:
		t.Fatal("watch channel should coalesce, not queue every change")
	default:
	}
}

func TestWatchCancelClosesChannel(t *testing.T) {
	s := New()
	ch, cancel := s.Watch()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Mutating after cancel must not panic on the closed channel.
	s.Upsert("txn-1", ann("a1", "txn-1", "x"))
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("txn-%d", w)
				s.Upsert(id, ann(fmt.Sprintf("a%d-%d", w, i), id, "text"))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				for range s.Snapshot() {
				}
				s.Get("txn-0")
				s.Version()
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 4, s.Len())
}
