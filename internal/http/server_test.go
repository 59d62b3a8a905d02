package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	"cashflow/internal/log"
	"cashflow/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := ledger.NewRepository(
		ledger.Authenticated("owner-1"),
		nil,
		memory.New(),
		log.New(log.Config{Component: log.ComponentLedger}),
	)
	require.NoError(t, err)
	s := NewServer(":0", repo, nil)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func postTransaction(t *testing.T, s *Server, ledgerID string, amount int64, direction, category string) core.Transaction {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/ledgers/"+ledgerID+"/transactions", map[string]any{
		"direction":   direction,
		"amount":      decimal.NewFromInt(amount),
		"category":    category,
		"paymentMode": "CASH",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tx core.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tx))
	return tx
}

func TestTransactionCRUD(t *testing.T) {
	s := newTestServer(t)

	created := postTransaction(t, s, "book-1", 100, "OUT", "Food")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "book-1", created.LedgerID)

	rec := do(t, s, http.MethodGet, "/api/ledgers/book-1/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Transactions, 1)

	created.Remark = "edited"
	rec = do(t, s, http.MethodPut, fmt.Sprintf("/api/ledgers/book-1/transactions/%s", created.ID), created)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodDelete, fmt.Sprintf("/api/ledgers/book-1/transactions/%s", created.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/ledgers/book-1/transactions", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Transactions)
}

func TestCreateTransactionValidation(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/ledgers/book-1/transactions", map[string]any{
		"direction":   "OUT",
		"amount":      "0",
		"category":    "Food",
		"paymentMode": "CASH",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "amount")
}

func TestFilteredListing(t *testing.T) {
	s := newTestServer(t)
	postTransaction(t, s, "book-1", 100, "OUT", "Food")
	postTransaction(t, s, "book-1", 200, "OUT", "Transport")

	rec := do(t, s, http.MethodGet, "/api/ledgers/book-1/transactions?direction=IN", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Empty(t, listed.Transactions, "no IN records exist")

	rec = do(t, s, http.MethodGet, "/api/ledgers/book-1/transactions?category=Food", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Transactions, 1)
	assert.Equal(t, "Food", listed.Transactions[0].Category)
}

func TestSummaryEndpoints(t *testing.T) {
	s := newTestServer(t)
	postTransaction(t, s, "book-1", 100, "OUT", "Food")
	postTransaction(t, s, "book-1", 50, "OUT", "Food")
	postTransaction(t, s, "book-1", 200, "OUT", "Transport")
	postTransaction(t, s, "book-1", 900, "IN", "Salary")

	rec := do(t, s, http.MethodGet, "/api/ledgers/book-1/summary/monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var monthly struct {
		Months []struct {
			Total decimal.Decimal `json:"total"`
		} `json:"months"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &monthly))
	require.Len(t, monthly.Months, 1)
	assert.True(t, monthly.Months[0].Total.Equal(decimal.NewFromInt(350)))

	rec = do(t, s, http.MethodGet, "/api/ledgers/book-1/summary/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var breakdown struct {
		Categories []struct {
			Category   string  `json:"category"`
			Percentage float64 `json:"percentage"`
		} `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &breakdown))
	require.Len(t, breakdown.Categories, 2, "income never enters the expense breakdown")
	assert.Equal(t, "Transport", breakdown.Categories[0].Category)
	assert.InDelta(t, 57.14, breakdown.Categories[0].Percentage, 0.01)
}

func TestCashbookEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/cashbooks", map[string]string{"name": "Household"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var book core.Cashbook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))

	rec = do(t, s, http.MethodPatch, "/api/cashbooks/"+book.ID, map[string]string{"name": "Family"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/cashbooks/"+book.ID+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var dup core.Cashbook
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dup))
	assert.Equal(t, "Family (copy)", dup.Name)

	rec = do(t, s, http.MethodDelete, "/api/cashbooks/"+book.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodPatch, "/api/cashbooks/missing", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/cashbooks", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCategoryEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Categories []core.Category `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Categories, len(core.BuiltinCategories()))

	rec = do(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "Pet Care", "colorHex": "#FFB300"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/categories", map[string]string{"name": "food"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/categories/Pet%20Care", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMethodGuards(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodDelete, "/api/ledgers/book-1/transactions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/readyz", nil).Code)
}
