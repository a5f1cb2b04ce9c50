// Package sync implements the Sync Manager: it watches a
// reachability.Observer and, on the non-reachable→reachable transition,
// drains the offline queue through the engine, tagging outgoing calls
// no-requeue so a failure during sync cannot loop back into the queue it
// is draining.
package sync

import (
	"context"
	stdsync "sync"

	"github.com/corexis/netkit"
	"github.com/corexis/netkit/queue"
	"github.com/corexis/netkit/reachability"
)

// NoRequeueTag is attached, via netkit.WithTag, to the context every
// replayed call is driven through while a sync is in progress; the engine
// seeds it onto that call's RequestContext automatically. Callers that
// would otherwise re-enqueue a failed request on the offline queue must
// check netkit.ContextHasTag(ctx, NoRequeueTag) (or rc.HasTag, from an
// interceptor) and skip that step so a failure during sync cannot loop
// back into the queue it is draining.
const NoRequeueTag = "sync:no-requeue"

// Manager coalesces reachability-triggered drains of an offline queue.
type Manager struct {
	queue       *queue.Queue
	replay      queue.Replayer
	onResult    func(queue.Result)
	mu          stdsync.Mutex
	syncing     bool
	pendingRun  bool
	autoSync    bool
}

// New builds a Manager draining q via replay, reporting each entry's
// outcome through onResult.
func New(q *queue.Queue, replay queue.Replayer, onResult func(queue.Result)) *Manager {
	return &Manager{queue: q, replay: replay, onResult: onResult, autoSync: true}
}

// SetAutoSync toggles whether reachability transitions trigger a sync
// automatically (default true).
func (m *Manager) SetAutoSync(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoSync = enabled
}

// Attach subscribes the manager to observer, triggering Sync on every
// non-reachable→reachable transition while auto-sync is enabled.
func (m *Manager) Attach(ctx context.Context, observer *reachability.Observer) string {
	wasReachable := observer.Status().IsReachable()
	return observer.Subscribe(func(status reachability.Status) {
		m.mu.Lock()
		becameReachable := !wasReachable && status.IsReachable()
		wasReachable = status.IsReachable()
		auto := m.autoSync
		m.mu.Unlock()
		if becameReachable && auto {
			m.Sync(ctx)
		}
	})
}

// Sync drains the queue once. Re-entrant calls while a sync is already
// running are coalesced: at most one extra run is scheduled to catch
// entries enqueued during the in-flight drain.
func (m *Manager) Sync(ctx context.Context) {
	m.mu.Lock()
	if m.syncing {
		m.pendingRun = true
		m.mu.Unlock()
		return
	}
	m.syncing = true
	m.mu.Unlock()

	syncCtx := netkit.WithTag(ctx, NoRequeueTag)
	for {
		m.queue.ProcessQueue(syncCtx, m.replay, m.onResult)

		m.mu.Lock()
		if !m.pendingRun {
			m.syncing = false
			m.mu.Unlock()
			return
		}
		m.pendingRun = false
		m.mu.Unlock()
	}
}

// IsSyncing reports whether a drain is currently in progress.
func (m *Manager) IsSyncing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.syncing
}
