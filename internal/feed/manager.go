// Package feed keeps the live transaction subscription aligned with
// the ledger the user is looking at. At most one feed is attached at a
// time and snapshots from a superseded feed are dropped, never applied.
package feed

import (
	"errors"
	"sync"

	"cashflow/internal/core"
	"cashflow/internal/log"
	"cashflow/internal/store/remote"
)

var ErrClosed = errors.New("feed manager is closed")

// Manager owns the single attached feed. Callbacks arrive on the
// client's delivery goroutine; consumers get the decoded snapshot
// together with the ledger id it belongs to.
type Manager struct {
	client     remote.Client
	ownerID    string
	logger     *log.Logger
	onSnapshot func(ledgerID string, txs []core.Transaction)
	onError    func(ledgerID string, err error)

	mu      sync.Mutex
	current string
	handle  remote.Handle
	closed  bool
}

func NewManager(client remote.Client, ownerID string, onSnapshot func(string, []core.Transaction), onError func(string, error), logger *log.Logger) *Manager {
	return &Manager{
		client:     client,
		ownerID:    ownerID,
		logger:     logger,
		onSnapshot: onSnapshot,
		onError:    onError,
	}
}

// Current returns the ledger id of the attached feed, empty when none.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Switch detaches the old feed strictly before attaching to the new
// ledger. A snapshot from the old feed that is already in flight is
// recognized by its captured ledger id and dropped.
func (m *Manager) Switch(ledgerID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.current == ledgerID && m.handle != nil {
		m.mu.Unlock()
		return nil
	}
	old := m.handle
	m.handle = nil
	m.current = ledgerID
	m.mu.Unlock()

	if old != nil {
		m.client.Unsubscribe(old)
	}

	// ledgerID is captured per subscription; the guard below compares
	// it against the manager's current ledger at delivery time.
	handle, err := m.client.Subscribe(
		remote.TransactionsPath(m.ownerID, ledgerID),
		func(records []remote.Record) { m.deliver(ledgerID, records) },
		func(err error) { m.fail(ledgerID, err) },
	)
	if err != nil {
		m.mu.Lock()
		if m.current == ledgerID {
			m.current = ""
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	if m.closed || m.current != ledgerID {
		// Superseded while subscribing; release immediately.
		m.mu.Unlock()
		m.client.Unsubscribe(handle)
		return nil
	}
	m.handle = handle
	m.mu.Unlock()

	m.logger.Info("Feed attached", log.FieldLedgerID, ledgerID)
	return nil
}

func (m *Manager) stale(ledgerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed || m.current != ledgerID
}

func (m *Manager) deliver(ledgerID string, records []remote.Record) {
	if m.stale(ledgerID) {
		m.logger.Debug("Dropping stale snapshot", log.FieldLedgerID, ledgerID)
		return
	}
	m.onSnapshot(ledgerID, remote.DecodeTransactions(records, ledgerID))
}

func (m *Manager) fail(ledgerID string, err error) {
	if m.stale(ledgerID) {
		return
	}
	m.logger.Error("Feed error", log.FieldLedgerID, ledgerID, "error", err)
	if m.onError != nil {
		m.onError(ledgerID, err)
	}
}

// Close detaches any feed and rejects further switches. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	handle := m.handle
	m.handle = nil
	m.current = ""
	m.mu.Unlock()

	if handle != nil {
		m.client.Unsubscribe(handle)
	}
}
