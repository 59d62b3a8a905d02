package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"cashflow/internal/core"
)

// Store adapts a Client plus an (owner, ledger) scope into the
// TransactionStore capability. One-shot reads go through FetchOnce;
// mutations are fire-and-confirm writes, with the live feed (managed
// elsewhere) as the authoritative confirmation.
type Store struct {
	client  Client
	ownerID string
	ledger  string
}

func NewStore(client Client, ownerID, ledgerID string) *Store {
	return &Store{client: client, ownerID: ownerID, ledger: ledgerID}
}

func (s *Store) path() string {
	return TransactionsPath(s.ownerID, s.ledger)
}

// NewKey asks the store to mint a collection-unique transaction id.
func (s *Store) NewKey() (string, error) {
	return s.client.NewKey(s.path())
}

func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	records, err := s.client.FetchOnce(ctx, s.path())
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	return DecodeTransactions(records, s.ledger), nil
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) error {
	return s.put(ctx, tx)
}

func (s *Store) Update(ctx context.Context, tx core.Transaction) error {
	return s.put(ctx, tx)
}

func (s *Store) put(ctx context.Context, tx core.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	if err := s.client.Write(ctx, s.path(), tx.ID, data); err != nil {
		return fmt.Errorf("write transaction: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, s.path(), id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// DecodeTransactions turns a collection snapshot into transactions
// sorted by OccurredAt descending. Records that fail to decode are
// logged and skipped rather than poisoning the whole snapshot.
func DecodeTransactions(records []Record, ledgerID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(records))
	for _, rec := range records {
		var tx core.Transaction
		if err := json.Unmarshal(rec.Data, &tx); err != nil {
			slog.Warn("Skipping undecodable transaction record",
				"key", rec.Key, "error", err)
			continue
		}
		// The node key is authoritative for the id.
		tx.ID = rec.Key
		if tx.LedgerID == "" {
			tx.LedgerID = ledgerID
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt > out[j].OccurredAt
	})
	return out
}
