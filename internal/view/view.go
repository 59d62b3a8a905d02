// Package view holds the read model a UI consumes: the latest full
// snapshot of one ledger, the active filter and the visible slice
// derived from both. Snapshots are replaced wholesale on every feed
// delivery; nothing is merged incrementally.
package view

import (
	"fmt"
	"sync"
	"time"

	"cashflow/internal/analytics"
	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/filter"
	"cashflow/internal/log"
)

type EventKind string

const (
	EventSnapshotReplaced EventKind = "snapshot_replaced"
	EventCriteriaChanged  EventKind = "criteria_changed"
)

// Event tells observers what changed and how many records are visible
// under the active criteria after the change.
type Event struct {
	Kind     EventKind
	LedgerID string
	Visible  int
}

type LedgerView struct {
	logger *log.Logger

	mu        sync.Mutex
	ledgerID  string
	snapshot  []core.Transaction
	criteria  filter.Criteria
	visible   []core.Transaction
	observers map[int]func(Event)
	nextObs   int

	monthly *cache.LRUCache[[]analytics.MonthlyExpense]
	byMonth *cache.LRUCache[[]analytics.CategoryShare]
	cleaner *cache.Manager
}

func NewLedgerView(logger *log.Logger) *LedgerView {
	v := &LedgerView{
		logger:    logger,
		observers: make(map[int]func(Event)),
		monthly:   cache.NewLRUCache[[]analytics.MonthlyExpense](4, 5*time.Minute),
		byMonth:   cache.NewLRUCache[[]analytics.CategoryShare](24, 5*time.Minute),
		cleaner:   cache.NewManager(),
	}
	v.cleaner.Register(v.monthly)
	v.cleaner.Register(v.byMonth)
	v.cleaner.StartCleanup(time.Minute)
	return v
}

// Close stops the background cache cleanup.
func (v *LedgerView) Close() {
	v.cleaner.Stop()
}

// Subscribe registers an observer and returns its release func, which
// is safe to call more than once.
func (v *LedgerView) Subscribe(fn func(Event)) func() {
	v.mu.Lock()
	id := v.nextObs
	v.nextObs++
	v.observers[id] = fn
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.observers, id)
			v.mu.Unlock()
		})
	}
}

// ApplySnapshot replaces the working set wholesale and invalidates the
// summary caches. Meant to be wired as the feed manager's snapshot
// callback.
func (v *LedgerView) ApplySnapshot(ledgerID string, txs []core.Transaction) {
	v.mu.Lock()
	v.ledgerID = ledgerID
	v.snapshot = txs
	v.visible = filter.Apply(v.snapshot, v.criteria)
	v.monthly.Clear()
	v.byMonth.Clear()
	event := Event{Kind: EventSnapshotReplaced, LedgerID: ledgerID, Visible: len(v.visible)}
	targets := v.observerList()
	v.mu.Unlock()

	v.logger.Debug("Snapshot replaced",
		log.FieldLedgerID, ledgerID, "records", len(txs))
	notify(targets, event)
}

func (v *LedgerView) SetCriteria(c filter.Criteria) {
	v.mu.Lock()
	v.criteria = c
	v.visible = filter.Apply(v.snapshot, v.criteria)
	event := Event{Kind: EventCriteriaChanged, LedgerID: v.ledgerID, Visible: len(v.visible)}
	targets := v.observerList()
	v.mu.Unlock()

	notify(targets, event)
}

func (v *LedgerView) ClearCriteria() {
	v.SetCriteria(filter.Criteria{})
}

func (v *LedgerView) Criteria() filter.Criteria {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.criteria
}

func (v *LedgerView) LedgerID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledgerID
}

// Snapshot returns the full working set regardless of criteria.
func (v *LedgerView) Snapshot() []core.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]core.Transaction, len(v.snapshot))
	copy(out, v.snapshot)
	return out
}

// Transactions returns the visible slice under the active criteria.
func (v *LedgerView) Transactions() []core.Transaction {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]core.Transaction, len(v.visible))
	copy(out, v.visible)
	return out
}

// Totals is computed over the visible slice, so it reflects the active
// filter the way the transaction list does.
func (v *LedgerView) Totals() analytics.Totals {
	v.mu.Lock()
	defer v.mu.Unlock()
	return analytics.ComputeTotals(v.visible)
}

// MonthlySummary aggregates the whole snapshot, not the filtered
// slice. Cached until the next snapshot replacement.
func (v *LedgerView) MonthlySummary() []analytics.MonthlyExpense {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := "monthly:" + v.ledgerID
	if cached, ok := v.monthly.Get(key); ok {
		return cached
	}
	result := analytics.MonthlyExpenses(v.snapshot)
	v.monthly.Set(key, result)
	return result
}

// CategorySummary breaks down the given month's expenses by category
// over the whole snapshot. Only OUT records count; income never enters
// the expense breakdown. Month is 1-12.
func (v *LedgerView) CategorySummary(year, month int) []analytics.CategoryShare {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := fmt.Sprintf("categories:%s:%04d-%02d", v.ledgerID, year, month)
	if cached, ok := v.byMonth.Get(key); ok {
		return cached
	}

	result := analytics.CategoryBreakdown(monthExpenses(v.snapshot, year, month))
	v.byMonth.Set(key, result)
	return result
}

// monthExpenses narrows to the OUT records of one calendar month.
func monthExpenses(txs []core.Transaction, year, month int) []core.Transaction {
	want := analytics.MonthKey{Year: year, Month: month}
	scoped := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Direction == core.DirectionOut && analytics.MonthOf(tx.OccurredAt) == want {
			scoped = append(scoped, tx)
		}
	}
	return scoped
}

func (v *LedgerView) observerList() []func(Event) {
	targets := make([]func(Event), 0, len(v.observers))
	for _, fn := range v.observers {
		targets = append(targets, fn)
	}
	return targets
}

func notify(targets []func(Event), event Event) {
	for _, fn := range targets {
		fn(event)
	}
}
