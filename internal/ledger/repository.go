// Package ledger is the single entry point for record access. A
// Repository binds a session mode to its backing store and keeps every
// caller unaware of whether records are local or replicated.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/store"
	"cashflow/internal/store/remote"
)

var (
	ErrAuthRequired    = errors.New("operation requires an authenticated session")
	ErrUnknownCashbook = errors.New("cashbook not found")
)

type Repository struct {
	mode   SessionMode
	local  store.TransactionStore
	client remote.Client
	logger *log.Logger

	// now is swappable so tests control stamped timestamps.
	now func() time.Time
}

// NewRepository wires a repository for the given session mode. Guest
// sessions need a local store; authenticated sessions need a remote
// client. The unused side may be nil.
func NewRepository(mode SessionMode, local store.TransactionStore, client remote.Client, logger *log.Logger) (*Repository, error) {
	if mode.IsGuest() && local == nil {
		return nil, fmt.Errorf("guest session needs a local store")
	}
	if !mode.IsGuest() && client == nil {
		return nil, fmt.Errorf("authenticated session needs a remote client")
	}
	return &Repository{
		mode:   mode,
		local:  local,
		client: client,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (r *Repository) Mode() SessionMode {
	return r.mode
}

func (r *Repository) remoteTransactions(ledgerID string) *remote.Store {
	return remote.NewStore(r.client, r.mode.OwnerID(), ledgerID)
}

// ListTransactions returns the ledger's records newest first. Records
// with equal timestamps keep their store order.
func (r *Repository) ListTransactions(ctx context.Context, ledgerID string) ([]core.Transaction, error) {
	if !r.mode.IsGuest() {
		return r.remoteTransactions(ledgerID).ListAll(ctx)
	}

	all, err := r.local.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(all))
	for _, tx := range all {
		if tx.LedgerID == ledgerID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt > out[j].OccurredAt
	})
	return out, nil
}

// AddTransaction validates, stamps OccurredAt when the caller left it
// zero, mints the id and inserts. The store is untouched when
// validation fails and the returned transaction always carries its id.
func (r *Repository) AddTransaction(ctx context.Context, ledgerID string, tx core.Transaction) (core.Transaction, error) {
	tx.LedgerID = ledgerID
	if tx.OccurredAt == 0 {
		tx.OccurredAt = r.now().UnixMilli()
	}
	if err := tx.Validate(false); err != nil {
		return core.Transaction{}, err
	}

	if tx.ID == "" {
		id, err := r.mintID(ledgerID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("mint transaction id: %w", err)
		}
		tx.ID = id
	}

	var err error
	if r.mode.IsGuest() {
		err = r.local.Insert(ctx, tx)
	} else {
		err = r.remoteTransactions(ledgerID).Insert(ctx, tx)
	}
	if err != nil {
		return core.Transaction{}, err
	}

	r.logger.InfoContext(ctx, "Transaction recorded",
		log.FieldTransactionID, tx.ID,
		log.FieldLedgerID, ledgerID,
		log.FieldDirection, string(tx.Direction),
		log.FieldCategory, tx.Category)
	return tx, nil
}

func (r *Repository) mintID(ledgerID string) (string, error) {
	if r.mode.IsGuest() {
		return uuid.NewString(), nil
	}
	return r.remoteTransactions(ledgerID).NewKey()
}

// UpdateTransaction overwrites the stored record wholesale. It fails
// fast on a missing id and never retries.
func (r *Repository) UpdateTransaction(ctx context.Context, ledgerID string, tx core.Transaction) error {
	tx.LedgerID = ledgerID
	if err := tx.Validate(true); err != nil {
		return err
	}
	if r.mode.IsGuest() {
		return r.local.Update(ctx, tx)
	}
	return r.remoteTransactions(ledgerID).Update(ctx, tx)
}

func (r *Repository) DeleteTransaction(ctx context.Context, ledgerID, id string) error {
	if id == "" {
		return core.ErrMissingID
	}
	if r.mode.IsGuest() {
		return r.local.Delete(ctx, id)
	}
	return r.remoteTransactions(ledgerID).Delete(ctx, id)
}
