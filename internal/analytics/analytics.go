// Package analytics aggregates transactions into time-bucketed and
// category-bucketed summaries. Every function is pure: inputs are never
// mutated and results are freshly allocated.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

type (
	// MonthKey identifies one calendar-month bucket.
	MonthKey struct {
		Year  int `json:"year"`
		Month int `json:"month"` // 1-12
	}

	// MonthlyExpense is the expense total for one month, most recent
	// first in the slice returned by MonthlyExpenses.
	MonthlyExpense struct {
		MonthKey
		Total        decimal.Decimal    `json:"total"`
		Transactions []core.Transaction `json:"-"`
	}

	// CategoryShare is one slice of a category breakdown.
	CategoryShare struct {
		Category   string          `json:"category"`
		Amount     decimal.Decimal `json:"amount"`
		Percentage float64         `json:"percentage"`
	}

	// Totals summarises a transaction set in both directions.
	Totals struct {
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
		Net     decimal.Decimal `json:"net"`
	}
)

// Before reports whether k is an earlier month than other.
func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// MonthOf buckets an epoch-millis timestamp into its UTC calendar month.
func MonthOf(millis int64) MonthKey {
	t := time.UnixMilli(millis).UTC()
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// MonthlyExpenses groups OUT transactions by calendar month and sums
// each bucket, most recent month first. IN transactions are ignored:
// these buckets feed expense analytics only.
func MonthlyExpenses(txs []core.Transaction) []MonthlyExpense {
	buckets := make(map[MonthKey]*MonthlyExpense)
	for _, tx := range txs {
		if tx.Direction != core.DirectionOut {
			continue
		}
		key := MonthOf(tx.OccurredAt)
		b, ok := buckets[key]
		if !ok {
			b = &MonthlyExpense{MonthKey: key}
			buckets[key] = b
		}
		b.Total = b.Total.Add(tx.Amount)
		b.Transactions = append(b.Transactions, tx)
	}

	out := make([]MonthlyExpense, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[j].MonthKey.Before(out[i].MonthKey)
	})
	return out
}

// CategoryBreakdown sums the given transactions per category and
// computes each category's share of the whole. Transactions without a
// category land in the "Others" bucket. A zero total yields zero
// percentages rather than a division by zero. Results are sorted by
// amount descending, ties broken by name ascending for determinism.
func CategoryBreakdown(txs []core.Transaction) []CategoryShare {
	sums := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, tx := range txs {
		cat := strings.TrimSpace(tx.Category)
		if cat == "" {
			cat = core.CategoryOthers
		}
		sums[cat] = sums[cat].Add(tx.Amount)
		total = total.Add(tx.Amount)
	}

	out := make([]CategoryShare, 0, len(sums))
	for cat, amount := range sums {
		share := CategoryShare{Category: cat, Amount: amount}
		if total.IsPositive() {
			pct, _ := amount.Div(total).Mul(decimal.NewFromInt(100)).Float64()
			share.Percentage = pct
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ComputeTotals sums income and expense across the set.
func ComputeTotals(txs []core.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Direction {
		case core.DirectionIn:
			t.Income = t.Income.Add(tx.Amount)
		case core.DirectionOut:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}
