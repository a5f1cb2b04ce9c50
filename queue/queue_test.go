package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnqueueDequeueOrdersByPriorityThenCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := New(path, 10)

	now := time.Now()
	require.NoError(t, q.Enqueue(Entry{ID: "low", Priority: 1, CreatedAt: now}))
	require.NoError(t, q.Enqueue(Entry{ID: "high", Priority: 5, CreatedAt: now.Add(time.Second)}))
	require.NoError(t, q.Enqueue(Entry{ID: "high-earlier", Priority: 5, CreatedAt: now}))

	e, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, "high-earlier", e.ID)

	e, ok = q.Dequeue()
	require.True(t, ok)
	require.Equal(t, "high", e.ID)

	e, ok = q.Dequeue()
	require.True(t, ok)
	require.Equal(t, "low", e.ID)
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := New(path, 1)
	require.NoError(t, q.Enqueue(Entry{ID: "a"}))
	err := q.Enqueue(Entry{ID: "b"})
	require.Error(t, err)
}

func TestDequeueSkipsExpiredEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := New(path, 10)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, q.Enqueue(Entry{ID: "expired", Priority: 10, ExpiresAt: &past}))
	require.NoError(t, q.Enqueue(Entry{ID: "fresh", Priority: 1}))

	e, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, "fresh", e.ID)
}

func TestPersistenceSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := New(path, 10)
	require.NoError(t, q.Enqueue(Entry{ID: "a", Priority: 1}))

	q2 := New(path, 10)
	require.Equal(t, 1, q2.Size())
}

func TestCorruptedStateLoadsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	q := New(path, 10)
	require.Equal(t, 0, q.Size())
}

func TestProcessQueueRequeuesOnFailureUntilCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := New(path, 10, WithRetryCap(2))
	require.NoError(t, q.Enqueue(Entry{ID: "flaky", Priority: 1}))

	var attempts int
	var results []Result
	replay := func(ctx context.Context, e Entry) error {
		attempts++
		return errors.New("boom")
	}
	q.ProcessQueue(context.Background(), replay, func(r Result) {
		results = append(results, r)
	})

	require.Equal(t, 2, attempts)
	require.Len(t, results, 1)
	require.False(t, results[0].Success)
}

func TestProcessQueueReportsSuccessAndDrains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := New(path, 10)
	require.NoError(t, q.Enqueue(Entry{ID: "ok", Priority: 1}))

	var results []Result
	q.ProcessQueue(context.Background(), func(ctx context.Context, e Entry) error {
		return nil
	}, func(r Result) {
		results = append(results, r)
	})

	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.Equal(t, 0, q.Size())
}
