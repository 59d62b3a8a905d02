// Package memory is an in-process implementation of the remote
// replicated store contract. It keeps whole collections in memory and
// broadcasts full-collection snapshots to every subscriber on each
// accepted change. It backs the "memory" data backend and the test
// suites for everything above the client interface.
package memory

import (
	"context"
	"sort"
	"sync"

	"cashflow/internal/store/remote"
)

type Replica struct {
	mu       sync.Mutex
	data     map[string]map[string][]byte // path -> key -> payload
	subs     map[string]map[uint64]*subscription
	nextSub  uint64
	writeErr error
	fetchErr error
}

type subscription struct {
	id        uint64
	path      string
	queue     chan []remote.Record
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Path() string { return s.path }

func New() *Replica {
	return &Replica{
		data: make(map[string]map[string][]byte),
		subs: make(map[string]map[uint64]*subscription),
	}
}

// FailWrites makes every subsequent Write/Delete return err. Pass nil to
// restore normal behavior. Test hook.
func (r *Replica) FailWrites(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writeErr = err
}

// FailFetches makes every subsequent FetchOnce return err. Test hook.
func (r *Replica) FailFetches(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchErr = err
}

func (r *Replica) FetchOnce(_ context.Context, path string) ([]remote.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return r.snapshotLocked(path), nil
}

// Subscribe opens a live feed on path. The current snapshot is delivered
// first, then one snapshot per accepted change, in emission order.
func (r *Replica) Subscribe(path string, onSnapshot func([]remote.Record), onError func(error)) (remote.Handle, error) {
	r.mu.Lock()
	r.nextSub++
	sub := &subscription{
		id:    r.nextSub,
		path:  path,
		queue: make(chan []remote.Record, 64),
		done:  make(chan struct{}),
	}
	if r.subs[path] == nil {
		r.subs[path] = make(map[uint64]*subscription)
	}
	r.subs[path][sub.id] = sub
	// Enqueue the initial snapshot before releasing the mutex so a write
	// racing this subscribe cannot get its newer snapshot in first. The
	// fresh queue has room, the send cannot block.
	sub.queue <- r.snapshotLocked(path)
	r.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case snap := <-sub.queue:
				// Re-check after dequeue so a snapshot racing the
				// unsubscribe is still suppressed.
				select {
				case <-sub.done:
					return
				default:
				}
				onSnapshot(snap)
			}
		}
	}()

	return sub, nil
}

// Unsubscribe cancels the feed. Safe to call more than once; no delivery
// for the handle happens after it returns the first time.
func (r *Replica) Unsubscribe(h remote.Handle) {
	sub, ok := h.(*subscription)
	if !ok {
		return
	}
	sub.closeOnce.Do(func() { close(sub.done) })

	r.mu.Lock()
	defer r.mu.Unlock()
	if m := r.subs[sub.path]; m != nil {
		delete(m, sub.id)
	}
}

func (r *Replica) Write(_ context.Context, path, key string, data []byte) error {
	r.mu.Lock()
	if r.writeErr != nil {
		err := r.writeErr
		r.mu.Unlock()
		return err
	}
	if r.data[path] == nil {
		r.data[path] = make(map[string][]byte)
	}
	r.data[path][key] = append([]byte(nil), data...)
	targets, snap := r.broadcastTargetsLocked(path)
	r.mu.Unlock()

	deliver(targets, snap)
	return nil
}

func (r *Replica) Delete(_ context.Context, path, key string) error {
	r.mu.Lock()
	if r.writeErr != nil {
		err := r.writeErr
		r.mu.Unlock()
		return err
	}
	if m := r.data[path]; m != nil {
		delete(m, key)
	}
	targets, snap := r.broadcastTargetsLocked(path)
	r.mu.Unlock()

	deliver(targets, snap)
	return nil
}

func (r *Replica) NewKey(_ string) (string, error) {
	return nextPushID(), nil
}

// snapshotLocked copies the collection at path, keys in lexicographic
// order so push-keyed records come out in creation order.
func (r *Replica) snapshotLocked(path string) []remote.Record {
	m := r.data[path]
	out := make([]remote.Record, 0, len(m))
	for key, data := range m {
		out = append(out, remote.Record{Key: key, Data: append([]byte(nil), data...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Replica) broadcastTargetsLocked(path string) ([]*subscription, []remote.Record) {
	m := r.subs[path]
	targets := make([]*subscription, 0, len(m))
	for _, sub := range m {
		targets = append(targets, sub)
	}
	return targets, r.snapshotLocked(path)
}

func deliver(targets []*subscription, snap []remote.Record) {
	for _, sub := range targets {
		select {
		case sub.queue <- snap:
		case <-sub.done:
		}
	}
}
