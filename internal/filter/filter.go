// Package filter implements stateless multi-predicate filtering over an
// in-memory transaction list. Predicate groups combine with AND; the text
// search matches with OR across category, party and remark.
package filter

import (
	"strings"

	"cashflow/internal/core"
)

// Criteria describes one filter pass. Zero values disable the
// corresponding predicate: an empty search matches everything, a (0,0)
// date range means no date filter, "All" or empty direction means both
// directions, and empty category/payment-mode sets impose no restriction.
type Criteria struct {
	Search       string
	StartMillis  int64
	EndMillis    int64
	Direction    string
	Categories   []string
	PaymentModes []string
}

// IsZero reports whether no predicate is active.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Search) == "" &&
		c.StartMillis == 0 && c.EndMillis == 0 &&
		(c.Direction == "" || strings.EqualFold(c.Direction, "All")) &&
		len(c.Categories) == 0 && len(c.PaymentModes) == 0
}

// Apply returns the transactions matching every active predicate. Input
// order is preserved and the input slice is never mutated; callers that
// care about ordering sort before filtering.
func Apply(txs []core.Transaction, c Criteria) []core.Transaction {
	search := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !matchesSearch(tx, search) {
			continue
		}
		if !matchesDate(tx, c.StartMillis, c.EndMillis) {
			continue
		}
		if !matchesDirection(tx, c.Direction) {
			continue
		}
		if !matchesSet(tx.Category, c.Categories) {
			continue
		}
		if !matchesSet(string(tx.PaymentMode), c.PaymentModes) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func matchesSearch(tx core.Transaction, search string) bool {
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(tx.Category), search) ||
		strings.Contains(strings.ToLower(tx.Party), search) ||
		strings.Contains(strings.ToLower(tx.Remark), search)
}

func matchesDate(tx core.Transaction, start, end int64) bool {
	if start == 0 && end == 0 {
		return true
	}
	return tx.OccurredAt >= start && tx.OccurredAt <= end
}

func matchesDirection(tx core.Transaction, direction string) bool {
	if direction == "" || strings.EqualFold(direction, "All") {
		return true
	}
	return strings.EqualFold(string(tx.Direction), direction)
}

func matchesSet(value string, set []string) bool {
	if len(set) == 0 {
		return true
	}
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}
