// Package remote defines the contract of the push-notifying replicated
// store and adapts it to the TransactionStore capability. The store
// delivers whole-collection snapshots, never diffs: consumers replace
// their working set wholesale on every delivery.
package remote

import "context"

// Record is one flat node of a collection, addressed by its key within
// the collection path. Data is the JSON payload.
type Record struct {
	Key  string
	Data []byte
}

// Handle identifies one live feed. It is opaque to consumers; only the
// client that issued it can cancel it.
type Handle interface {
	// Path returns the collection path the feed was opened on.
	Path() string
}

// Client is the capability surface of the remote replicated store.
//
// Subscribe fires onSnapshot once immediately with the current state and
// again after every accepted change, in emission order for a single
// handle. Unsubscribe is idempotent and suppresses any delivery still in
// flight for that handle. Write and Delete are fire-and-confirm: a nil
// error means the store accepted the request, not that subscribed feeds
// have observed it yet.
type Client interface {
	FetchOnce(ctx context.Context, path string) ([]Record, error)
	Subscribe(path string, onSnapshot func([]Record), onError func(error)) (Handle, error)
	Unsubscribe(h Handle)
	Write(ctx context.Context, path, key string, data []byte) error
	Delete(ctx context.Context, path, key string) error
	NewKey(path string) (string, error)
}
