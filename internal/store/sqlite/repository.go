// Package sqlite is the local persistent store used in guest mode: a
// single unscoped on-device table of transactions keyed by id.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert stores a new transaction. The id must already be set; a
// duplicate id is logged and reported as store.ErrDuplicateID.
func (r *Repository) Insert(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, ledger_id, direction, amount, category, payment_mode, party, remark, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.LedgerID, string(tx.Direction), tx.Amount.String(),
		tx.Category, string(tx.PaymentMode), tx.Party, tx.Remark, tx.OccurredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			slog.WarnContext(ctx, "Duplicate transaction id on insert",
				"transaction_id", tx.ID)
			return store.ErrDuplicateID
		}
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to local store",
		"transaction_id", tx.ID,
		"direction", string(tx.Direction),
		"amount", tx.Amount.String(),
		"category", tx.Category)
	return nil
}

// Update overwrites the full record by id. Updating an absent id is a
// no-op.
func (r *Repository) Update(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET ledger_id = ?, direction = ?, amount = ?, category = ?,
			payment_mode = ?, party = ?, remark = ?, occurred_at = ?
		WHERE id = ?`,
		tx.LedgerID, string(tx.Direction), tx.Amount.String(), tx.Category,
		string(tx.PaymentMode), tx.Party, tx.Remark, tx.OccurredAt, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return nil
}

// Delete removes the record by id. Deleting an absent id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// ListAll returns every stored transaction, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ledger_id, direction, amount, category, payment_mode, party, remark, occurred_at
		FROM transactions
		ORDER BY occurred_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var tx core.Transaction
		var direction, mode, amount string
		if err := rows.Scan(&tx.ID, &tx.LedgerID, &direction, &amount,
			&tx.Category, &mode, &tx.Party, &tx.Remark, &tx.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Direction = core.Direction(direction)
		tx.PaymentMode = core.PaymentMode(mode)
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount for %s: %w", tx.ID, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
