// Package store defines the capability interface shared by the local
// and remote transaction stores. The repository holds exactly one
// implementation, selected at construction time by the session mode.
package store

import (
	"context"
	"errors"

	"cashflow/internal/core"
)

// ErrDuplicateID is returned by Insert when the id already exists.
var ErrDuplicateID = errors.New("transaction id already exists")

// TransactionStore is the durable home of one ledger's transactions.
//
// ListAll returns a snapshot sorted by OccurredAt descending. Update and
// Delete are idempotent: operating on an absent id is a no-op. Insert
// requires the caller to have set a unique id beforehand.
type TransactionStore interface {
	ListAll(ctx context.Context) ([]core.Transaction, error)
	Insert(ctx context.Context, tx core.Transaction) error
	Update(ctx context.Context, tx core.Transaction) error
	Delete(ctx context.Context, id string) error
}
