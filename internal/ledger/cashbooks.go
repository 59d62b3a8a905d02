package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/store/remote"
)

// Cashbook metadata lives in the replicated store only; guest sessions
// work inside one implicit local book and every operation here demands
// an authenticated session.

func (r *Repository) ledgersPath() string {
	return remote.LedgersPath(r.mode.OwnerID())
}

func (r *Repository) ListCashbooks(ctx context.Context) ([]core.Cashbook, error) {
	if r.mode.IsGuest() {
		return nil, ErrAuthRequired
	}

	records, err := r.client.FetchOnce(ctx, r.ledgersPath())
	if err != nil {
		return nil, fmt.Errorf("fetch cashbooks: %w", err)
	}

	out := make([]core.Cashbook, 0, len(records))
	for _, rec := range records {
		var book core.Cashbook
		if err := json.Unmarshal(rec.Data, &book); err != nil {
			r.logger.WarnContext(ctx, "Skipping undecodable cashbook record",
				"key", rec.Key, "error", err)
			continue
		}
		book.ID = rec.Key
		out = append(out, book)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out, nil
}

func (r *Repository) CreateCashbook(ctx context.Context, name, description string) (core.Cashbook, error) {
	if r.mode.IsGuest() {
		return core.Cashbook{}, ErrAuthRequired
	}

	now := r.now().UnixMilli()
	book := core.Cashbook{
		Name:         name,
		Description:  description,
		OwnerID:      r.mode.OwnerID(),
		CurrencyCode: core.DefaultCurrencyCode,
		CreatedAt:    now,
		LastModified: now,
		Active:       true,
	}
	if err := book.Validate(); err != nil {
		return core.Cashbook{}, err
	}

	key, err := r.client.NewKey(r.ledgersPath())
	if err != nil {
		return core.Cashbook{}, fmt.Errorf("mint cashbook id: %w", err)
	}
	book.ID = key

	if err := r.putCashbook(ctx, book); err != nil {
		return core.Cashbook{}, err
	}

	r.logger.InfoContext(ctx, "Cashbook created",
		log.FieldLedgerID, book.ID, "name", book.Name)
	return book, nil
}

func (r *Repository) RenameCashbook(ctx context.Context, id, newName string) (core.Cashbook, error) {
	book, err := r.getCashbook(ctx, id)
	if err != nil {
		return core.Cashbook{}, err
	}

	book.Name = newName
	book.LastModified = r.now().UnixMilli()
	if err := book.Validate(); err != nil {
		return core.Cashbook{}, err
	}
	if err := r.putCashbook(ctx, book); err != nil {
		return core.Cashbook{}, err
	}
	return book, nil
}

// DeleteCashbook removes a book and its transaction collection. The
// store deletes record by record, so a partially deleted collection is
// possible on failure and the operation is safe to repeat.
func (r *Repository) DeleteCashbook(ctx context.Context, id string) error {
	if r.mode.IsGuest() {
		return ErrAuthRequired
	}
	if _, err := r.getCashbook(ctx, id); err != nil {
		return err
	}

	txPath := remote.TransactionsPath(r.mode.OwnerID(), id)
	records, err := r.client.FetchOnce(ctx, txPath)
	if err != nil {
		return fmt.Errorf("fetch transactions for delete: %w", err)
	}
	for _, rec := range records {
		if err := r.client.Delete(ctx, txPath, rec.Key); err != nil {
			return fmt.Errorf("delete transaction %s: %w", rec.Key, err)
		}
	}

	if err := r.client.Delete(ctx, r.ledgersPath(), id); err != nil {
		return fmt.Errorf("delete cashbook: %w", err)
	}
	r.logger.InfoContext(ctx, "Cashbook deleted", log.FieldLedgerID, id)
	return nil
}

// DuplicateCashbook copies the source's metadata, currency and favorite
// flag included, into a fresh book with zeroed derived fields.
// Transactions stay with the source book.
func (r *Repository) DuplicateCashbook(ctx context.Context, id, newName string) (core.Cashbook, error) {
	source, err := r.getCashbook(ctx, id)
	if err != nil {
		return core.Cashbook{}, err
	}

	copyName := newName
	if copyName == "" {
		copyName = source.Name + " (copy)"
	}

	now := r.now().UnixMilli()
	book := source
	book.Name = copyName
	book.CreatedAt = now
	book.LastModified = now
	book.Active = true
	book.TransactionCount = 0
	book.TotalBalance = decimal.Zero
	if err := book.Validate(); err != nil {
		return core.Cashbook{}, err
	}

	key, err := r.client.NewKey(r.ledgersPath())
	if err != nil {
		return core.Cashbook{}, fmt.Errorf("mint cashbook id: %w", err)
	}
	book.ID = key

	if err := r.putCashbook(ctx, book); err != nil {
		return core.Cashbook{}, err
	}
	r.logger.InfoContext(ctx, "Cashbook duplicated",
		log.FieldLedgerID, book.ID, "source_id", source.ID, "name", book.Name)
	return book, nil
}

func (r *Repository) getCashbook(ctx context.Context, id string) (core.Cashbook, error) {
	if r.mode.IsGuest() {
		return core.Cashbook{}, ErrAuthRequired
	}

	records, err := r.client.FetchOnce(ctx, r.ledgersPath())
	if err != nil {
		return core.Cashbook{}, fmt.Errorf("fetch cashbooks: %w", err)
	}
	for _, rec := range records {
		if rec.Key != id {
			continue
		}
		var book core.Cashbook
		if err := json.Unmarshal(rec.Data, &book); err != nil {
			return core.Cashbook{}, fmt.Errorf("decode cashbook %s: %w", id, err)
		}
		book.ID = rec.Key
		return book, nil
	}
	return core.Cashbook{}, ErrUnknownCashbook
}

func (r *Repository) putCashbook(ctx context.Context, book core.Cashbook) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("encode cashbook: %w", err)
	}
	if err := r.client.Write(ctx, r.ledgersPath(), book.ID, data); err != nil {
		return fmt.Errorf("write cashbook: %w", err)
	}
	return nil
}
