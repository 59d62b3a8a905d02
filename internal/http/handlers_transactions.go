package http

import (
	"encoding/json"
	"net/http"

	"cashflow/internal/analytics"
	"cashflow/internal/core"
	"cashflow/internal/filter"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.PathValue("ledgerID")
	criteria := ParseCriteria(r.URL.Query())

	txs, err := s.snapshotOrList(r, ledgerID)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	matched := filter.Apply(txs, criteria)

	writeJSON(w, http.StatusOK, struct {
		Transactions []core.Transaction `json:"transactions"`
		Totals       analytics.Totals   `json:"totals"`
	}{
		Transactions: matched,
		Totals:       analytics.ComputeTotals(matched),
	})
}

// snapshotOrList prefers the live feed snapshot when the view is
// attached to the requested ledger, falling back to a store read.
func (s *Server) snapshotOrList(r *http.Request, ledgerID string) ([]core.Transaction, error) {
	if s.view != nil && s.view.LedgerID() == ledgerID {
		return s.view.Snapshot(), nil
	}
	return s.repo.ListTransactions(r.Context(), ledgerID)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.PathValue("ledgerID")

	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx.Party = sanitizeInput(tx.Party)
	tx.Remark = sanitizeInput(tx.Remark)

	saved, err := s.repo.AddTransaction(r.Context(), ledgerID, tx)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.PathValue("ledgerID")

	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// The URL is authoritative for the record identity.
	tx.ID = r.PathValue("id")
	tx.Party = sanitizeInput(tx.Party)
	tx.Remark = sanitizeInput(tx.Remark)

	if err := s.repo.UpdateTransaction(r.Context(), ledgerID, tx); err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.PathValue("ledgerID")
	id := r.PathValue("id")

	if err := s.repo.DeleteTransaction(r.Context(), ledgerID, id); err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.PathValue("ledgerID")

	txs, err := s.repo.ListTransactions(r.Context(), ledgerID)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Months []analytics.MonthlyExpense `json:"months"`
	}{Months: analytics.MonthlyExpenses(txs)})
}

func (s *Server) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.PathValue("ledgerID")
	params := ParseMonthParams(r.URL.Query())

	txs, err := s.repo.ListTransactions(r.Context(), ledgerID)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}

	// Expense breakdown: OUT records of the requested month only.
	want := analytics.MonthKey{Year: params.Year, Month: params.Month}
	scoped := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Direction == core.DirectionOut && analytics.MonthOf(tx.OccurredAt) == want {
			scoped = append(scoped, tx)
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Year       int                       `json:"year"`
		Month      int                       `json:"month"`
		Categories []analytics.CategoryShare `json:"categories"`
	}{
		Year:       params.Year,
		Month:      params.Month,
		Categories: analytics.CategoryBreakdown(scoped),
	})
}
