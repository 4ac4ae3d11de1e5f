package watch

import (
	"sync"

	"github.com/google/uuid"

	"github.com/mutagen-io/memfs/pkg/memfs/tree"
)

// Key is a single directory registration with a PollingWatchService. It
// accumulates pending events and is on the service's ready queue at most
// once at a time. Take and Poll remove it from the queue; once PollEvents
// has drained its events, the next poll that finds events queues it
// again, whether or not Reset has been called.
type Key struct {
	id      uuid.UUID
	service *PollingWatchService

	directory *tree.Directory
	kinds     map[EventKind]bool

	mu       sync.Mutex
	snapshot map[string]snapshotEntry
	events   []WatchEvent
	valid    bool
	queued   bool
}

// ID returns the key's unique identifier.
func (k *Key) ID() uuid.UUID {
	return k.id
}

// IsValid reports whether the key is still registered (not cancelled and
// not invalidated by the service closing).
func (k *Key) IsValid() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.valid
}

// poll diffs the key's directory against its stored snapshot, filters the
// resulting events by the key's requested kinds, and enqueues the key on
// the service's ready queue if it transitions from empty to non-empty, per
// spec.md §4.6 steps 1-4.
func (k *Key) poll() {
	k.mu.Lock()
	if !k.valid {
		k.mu.Unlock()
		return
	}
	previous := k.snapshot
	dir := k.directory
	kinds := k.kinds
	wasEmpty := len(k.events) == 0
	k.mu.Unlock()

	next, rawEvents := diffDirectory(dir, previous)

	var filtered []WatchEvent
	for _, e := range rawEvents {
		if kinds[e.Kind] {
			filtered = append(filtered, e)
		}
	}

	if len(filtered) == 0 {
		k.mu.Lock()
		k.snapshot = next
		k.mu.Unlock()
		return
	}

	k.mu.Lock()
	k.snapshot = next
	k.events = append(k.events, filtered...)
	k.mu.Unlock()

	if wasEmpty {
		k.service.enqueue(k)
	}
}

// PollEvents drains and returns the key's accumulated events. With the
// event list empty again, the next poll that finds events puts the key
// back on the ready queue; Reset is not needed for that.
func (k *Key) PollEvents() []WatchEvent {
	k.mu.Lock()
	defer k.mu.Unlock()
	events := k.events
	k.events = nil
	return events
}

// Reset re-arms the key: if new events have already accumulated since
// PollEvents last drained it, it is re-enqueued on the ready queue
// immediately. Reset on an invalid key is a no-op, matching the Java
// WatchKey contract.
func (k *Key) Reset() bool {
	k.mu.Lock()
	valid := k.valid
	pending := len(k.events) > 0
	k.mu.Unlock()

	if !valid {
		return false
	}
	if pending {
		k.service.enqueue(k)
	}
	return true
}

// Cancel permanently unregisters the key from its service. It is
// idempotent.
func (k *Key) Cancel() {
	k.invalidate()
	k.service.cancelKey(k.id)
}

// invalidate marks the key invalid without removing it from the service's
// map, used both by Cancel and by Service.Close.
func (k *Key) invalidate() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.valid = false
}

// Directory returns the tree.Directory this key watches.
func (k *Key) Directory() *tree.Directory {
	return k.directory
}
