package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"

	PaymentCash   PaymentMode = "CASH"
	PaymentOnline PaymentMode = "ONLINE"

	// CategoryPlaceholder is the UI placeholder value and is never a
	// valid persisted category.
	CategoryPlaceholder = "Select Category"

	// CategoryOthers is the bucket label for transactions without a
	// category in aggregated views.
	CategoryOthers = "Others"
)

type (
	Direction   string
	PaymentMode string

	// Transaction is one income or expense entry within a ledger.
	Transaction struct {
		ID          string          `json:"id"`
		LedgerID    string          `json:"ledgerId"`
		Direction   Direction       `json:"direction"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		PaymentMode PaymentMode     `json:"paymentMode"`
		Party       string          `json:"party,omitempty"`
		Remark      string          `json:"remark,omitempty"`
		OccurredAt  int64           `json:"occurredAt"` // epoch millis, user-editable
	}
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCategory    = errors.New("category missing or placeholder")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrInvalidPaymentMode = errors.New("invalid payment mode")
	ErrMissingLedger      = errors.New("ledger id required")
	ErrMissingID          = errors.New("transaction id required")
)

func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

func (m PaymentMode) Valid() bool {
	return m == PaymentCash || m == PaymentOnline
}

// Validate checks the record before it is allowed to reach any store.
// For updates the id must already be set; for inserts the store or the
// repository mints it afterwards.
func (t Transaction) Validate(forUpdate bool) error {
	if forUpdate && strings.TrimSpace(t.ID) == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(t.LedgerID) == "" {
		return ErrMissingLedger
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	cat := strings.TrimSpace(t.Category)
	if cat == "" || cat == CategoryPlaceholder {
		return ErrInvalidCategory
	}
	if !t.Direction.Valid() {
		return ErrInvalidDirection
	}
	if !t.PaymentMode.Valid() {
		return ErrInvalidPaymentMode
	}
	return nil
}
