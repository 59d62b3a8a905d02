package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencyCode is applied to cashbooks created without one.
const DefaultCurrencyCode = "INR"

// Cashbook is a named ledger container owned by one user.
//
// TransactionCount and TotalBalance are convenience caches for list-view
// badges. They are derived by the analytics package from the live
// transaction set and must never be treated as authoritative.
type Cashbook struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	OwnerID          string          `json:"ownerId,omitempty"`
	CurrencyCode     string          `json:"currencyCode"`
	CreatedAt        int64           `json:"createdAt"`
	LastModified     int64           `json:"lastModified"`
	Active           bool            `json:"active"`
	Favorite         bool            `json:"favorite"`
	TransactionCount int             `json:"transactionCount"`
	TotalBalance     decimal.Decimal `json:"totalBalance"`
}

var ErrEmptyCashbookName = errors.New("cashbook name cannot be empty")

func (c Cashbook) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCashbookName
	}
	return nil
}
