package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/store/remote"
)

const testPath = "owners/u1/ledgers/b1/transactions"

// snapshotCollector records snapshots in delivery order.
type snapshotCollector struct {
	mu    sync.Mutex
	snaps [][]remote.Record
	notif chan struct{}
}

func newCollector() *snapshotCollector {
	return &snapshotCollector{notif: make(chan struct{}, 64)}
}

func (c *snapshotCollector) onSnapshot(records []remote.Record) {
	c.mu.Lock()
	c.snaps = append(c.snaps, records)
	c.mu.Unlock()
	c.notif <- struct{}{}
}

func (c *snapshotCollector) waitFor(t *testing.T, n int) [][]remote.Record {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		c.mu.Lock()
		if len(c.snaps) >= n {
			out := make([][]remote.Record, len(c.snaps))
			copy(out, c.snaps)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		select {
		case <-c.notif:
		case <-deadline:
			t.Fatalf("timed out waiting for %d snapshots", n)
		}
	}
}

func (c *snapshotCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	r := New()
	ctx := context.Background()
	require.NoError(t, r.Write(ctx, testPath, "k1", []byte(`{"a":1}`)))

	col := newCollector()
	h, err := r.Subscribe(testPath, col.onSnapshot, nil)
	require.NoError(t, err)
	defer r.Unsubscribe(h)

	snaps := col.waitFor(t, 1)
	require.Len(t, snaps[0], 1)
	assert.Equal(t, "k1", snaps[0][0].Key)
}

func TestWriteBroadcastsWholeCollection(t *testing.T) {
	r := New()
	ctx := context.Background()

	col := newCollector()
	h, err := r.Subscribe(testPath, col.onSnapshot, nil)
	require.NoError(t, err)
	defer r.Unsubscribe(h)

	col.waitFor(t, 1) // initial, empty

	require.NoError(t, r.Write(ctx, testPath, "k1", []byte(`1`)))
	require.NoError(t, r.Write(ctx, testPath, "k2", []byte(`2`)))

	snaps := col.waitFor(t, 3)
	assert.Len(t, snaps[1], 1, "snapshot after first write")
	assert.Len(t, snaps[2], 2, "each delivery is the full collection, not a diff")

	require.NoError(t, r.Delete(ctx, testPath, "k1"))
	snaps = col.waitFor(t, 4)
	require.Len(t, snaps[3], 1)
	assert.Equal(t, "k2", snaps[3][0].Key)
}

func TestSubscribeRacingWriteKeepsEmissionOrder(t *testing.T) {
	ctx := context.Background()

	// A write landing while Subscribe is in flight must not be delivered
	// before the initial snapshot: the last snapshot a consumer holds has
	// to reflect the write.
	for i := 0; i < 200; i++ {
		r := New()
		col := newCollector()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, r.Write(ctx, testPath, "k1", []byte(`1`)))
		}()

		h, err := r.Subscribe(testPath, col.onSnapshot, nil)
		require.NoError(t, err)
		wg.Wait()

		snaps := col.waitFor(t, 1)
		for len(snaps[len(snaps)-1]) == 0 {
			snaps = col.waitFor(t, len(snaps)+1)
		}
		last := snaps[len(snaps)-1]
		require.Len(t, last, 1)
		assert.Equal(t, "k1", last[0].Key)
		r.Unsubscribe(h)
	}
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	r := New()
	ctx := context.Background()

	col := newCollector()
	h, err := r.Subscribe(testPath, col.onSnapshot, nil)
	require.NoError(t, err)
	col.waitFor(t, 1)

	r.Unsubscribe(h)
	r.Unsubscribe(h) // idempotent

	require.NoError(t, r.Write(ctx, testPath, "k1", []byte(`1`)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, col.count(), "no delivery after unsubscribe")
}

func TestSubscriptionsAreScopedToPath(t *testing.T) {
	r := New()
	ctx := context.Background()

	col := newCollector()
	h, err := r.Subscribe(testPath, col.onSnapshot, nil)
	require.NoError(t, err)
	defer r.Unsubscribe(h)
	col.waitFor(t, 1)

	require.NoError(t, r.Write(ctx, "owners/u1/ledgers/other/transactions", "k", []byte(`1`)))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, col.count(), "writes to other paths do not reach this feed")
}

func TestFetchOnce(t *testing.T) {
	r := New()
	ctx := context.Background()
	require.NoError(t, r.Write(ctx, testPath, "b", []byte(`2`)))
	require.NoError(t, r.Write(ctx, testPath, "a", []byte(`1`)))

	records, err := r.FetchOnce(ctx, testPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Key, "records come back in key order")
}

func TestInjectedFailures(t *testing.T) {
	r := New()
	ctx := context.Background()
	boom := errors.New("store unavailable")

	r.FailWrites(boom)
	assert.ErrorIs(t, r.Write(ctx, testPath, "k", []byte(`1`)), boom)
	assert.ErrorIs(t, r.Delete(ctx, testPath, "k"), boom)
	r.FailWrites(nil)
	assert.NoError(t, r.Write(ctx, testPath, "k", []byte(`1`)))

	r.FailFetches(boom)
	_, err := r.FetchOnce(ctx, testPath)
	assert.ErrorIs(t, err, boom)
}

func TestPushIDsAreOrderedAndUnique(t *testing.T) {
	r := New()
	prev := ""
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := r.NewKey(testPath)
		require.NoError(t, err)
		require.Len(t, id, 20)
		assert.Greater(t, id, prev, "push ids sort in creation order")
		_, dup := seen[id]
		require.False(t, dup, "push id repeated: %s", id)
		seen[id] = struct{}{}
		prev = id
	}
}
