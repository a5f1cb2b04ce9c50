package sync

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corexis/netkit/queue"
	"github.com/corexis/netkit/reachability"
)

func TestSyncDrainsQueueOnReachableTransition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := queue.New(path, 10)
	require.NoError(t, q.Enqueue(queue.Entry{ID: "a"}))
	require.NoError(t, q.Enqueue(queue.Entry{ID: "b"}))

	var replayed int32
	replay := func(ctx context.Context, e queue.Entry) error {
		atomic.AddInt32(&replayed, 1)
		return nil
	}

	m := New(q, replay, nil)
	observer := reachability.New()
	observer.Set(reachability.NotReachable)
	m.Attach(context.Background(), observer)

	observer.Set(reachability.ViaWifi)

	require.Equal(t, int32(2), atomic.LoadInt32(&replayed))
	require.Equal(t, 0, q.Size())
}

func TestSyncDoesNotTriggerWhenAutoSyncDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := queue.New(path, 10)
	require.NoError(t, q.Enqueue(queue.Entry{ID: "a"}))

	var replayed int32
	replay := func(ctx context.Context, e queue.Entry) error {
		atomic.AddInt32(&replayed, 1)
		return nil
	}

	m := New(q, replay, nil)
	m.SetAutoSync(false)
	observer := reachability.New()
	observer.Set(reachability.NotReachable)
	m.Attach(context.Background(), observer)

	observer.Set(reachability.ViaWifi)

	require.Equal(t, int32(0), atomic.LoadInt32(&replayed))
}

func TestConcurrentSyncCallsCoalesce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	q := queue.New(path, 10)
	require.NoError(t, q.Enqueue(queue.Entry{ID: "a"}))

	started := make(chan struct{})
	release := make(chan struct{})
	var replayCalls int32
	replay := func(ctx context.Context, e queue.Entry) error {
		atomic.AddInt32(&replayCalls, 1)
		close(started)
		<-release
		return nil
	}

	m := New(q, replay, nil)

	go m.Sync(context.Background())
	<-started

	require.True(t, m.IsSyncing())
	m.Sync(context.Background()) // re-entrant call while draining: coalesced

	close(release)

	require.Eventually(t, func() bool { return !m.IsSyncing() }, time.Second, 10*time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&replayCalls))
}
