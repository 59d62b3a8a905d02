package view

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/filter"
	"cashflow/internal/log"
)

func newTestView(t *testing.T) *LedgerView {
	t.Helper()
	v := NewLedgerView(log.New(log.Config{Component: log.ComponentView}))
	t.Cleanup(v.Close)
	return v
}

func millis(year, month, day int) int64 {
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC).UnixMilli()
}

func tx(id string, direction core.Direction, amount int64, category string, occurredAt int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		LedgerID:    "book-1",
		Direction:   direction,
		Amount:      decimal.NewFromInt(amount),
		Category:    category,
		PaymentMode: core.PaymentCash,
		OccurredAt:  occurredAt,
	}
}

func sampleSnapshot() []core.Transaction {
	return []core.Transaction{
		tx("a", core.DirectionOut, 100, "Food", millis(2026, 3, 5)),
		tx("b", core.DirectionOut, 200, "Transport", millis(2026, 3, 6)),
		tx("c", core.DirectionIn, 500, "Salary", millis(2026, 3, 1)),
		tx("d", core.DirectionOut, 50, "Food", millis(2026, 2, 20)),
	}
}

func TestApplySnapshotReplacesWholesale(t *testing.T) {
	v := newTestView(t)

	v.ApplySnapshot("book-1", sampleSnapshot())
	assert.Len(t, v.Transactions(), 4)

	// The next delivery fully supersedes the previous one.
	v.ApplySnapshot("book-1", sampleSnapshot()[:1])
	got := v.Transactions()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestCriteriaNarrowsVisibleSlice(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())

	v.SetCriteria(filter.Criteria{Categories: []string{"Food"}})
	got := v.Transactions()
	require.Len(t, got, 2)
	for _, tx := range got {
		assert.Equal(t, "Food", tx.Category)
	}

	v.ClearCriteria()
	assert.Len(t, v.Transactions(), 4)
}

func TestCriteriaSurvivesSnapshotReplacement(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())
	v.SetCriteria(filter.Criteria{Direction: "IN"})
	require.Len(t, v.Transactions(), 1)

	v.ApplySnapshot("book-1", sampleSnapshot()[:2])
	assert.Empty(t, v.Transactions(), "only OUT records remain under an IN filter")
}

func TestTotalsFollowActiveFilter(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())

	totals := v.Totals()
	assert.True(t, totals.Income.Equal(decimal.NewFromInt(500)))
	assert.True(t, totals.Expense.Equal(decimal.NewFromInt(350)))
	assert.True(t, totals.Net.Equal(decimal.NewFromInt(150)))

	v.SetCriteria(filter.Criteria{Categories: []string{"Food"}})
	totals = v.Totals()
	assert.True(t, totals.Income.IsZero())
	assert.True(t, totals.Expense.Equal(decimal.NewFromInt(150)))
}

func TestMonthlySummaryIgnoresFilter(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())
	v.SetCriteria(filter.Criteria{Categories: []string{"Salary"}})

	months := v.MonthlySummary()
	require.Len(t, months, 2)
	assert.Equal(t, 3, months[0].Month, "most recent month first")
	assert.True(t, months[0].Total.Equal(decimal.NewFromInt(300)))
	assert.True(t, months[1].Total.Equal(decimal.NewFromInt(50)))
}

func TestCategorySummaryScopedToMonth(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())

	shares := v.CategorySummary(2026, 3)
	require.Len(t, shares, 2)
	assert.Equal(t, "Transport", shares[0].Category)
	assert.Equal(t, "Food", shares[1].Category)

	shares = v.CategorySummary(2026, 2)
	require.Len(t, shares, 1)
	assert.Equal(t, "Food", shares[0].Category)
	assert.InDelta(t, 100.0, shares[0].Percentage, 0.01)
}

func TestSummariesRecomputedAfterSnapshotReplacement(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())
	require.Len(t, v.MonthlySummary(), 2)

	// Shrink the snapshot; the cached summary must not survive.
	v.ApplySnapshot("book-1", sampleSnapshot()[:1])
	months := v.MonthlySummary()
	require.Len(t, months, 1)
	assert.True(t, months[0].Total.Equal(decimal.NewFromInt(100)))
}

func TestObserversNotifiedAfterEveryChange(t *testing.T) {
	v := newTestView(t)
	var events []Event
	release := v.Subscribe(func(e Event) { events = append(events, e) })

	v.ApplySnapshot("book-1", sampleSnapshot())
	v.SetCriteria(filter.Criteria{Direction: "OUT"})
	require.Len(t, events, 2)
	assert.Equal(t, EventSnapshotReplaced, events[0].Kind)
	assert.Equal(t, 4, events[0].Visible)
	assert.Equal(t, EventCriteriaChanged, events[1].Kind)
	assert.Equal(t, 3, events[1].Visible)

	release()
	release() // safe to repeat
	v.ClearCriteria()
	assert.Len(t, events, 2, "released observer hears nothing")
}

func TestTransactionsReturnsACopy(t *testing.T) {
	v := newTestView(t)
	v.ApplySnapshot("book-1", sampleSnapshot())

	got := v.Transactions()
	got[0].Category = "tampered"
	assert.Equal(t, "Food", v.Transactions()[0].Category)
}
