package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"cashflow/internal/core"
	"cashflow/internal/ledger"
	"cashflow/internal/log"
	"cashflow/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeRepoError maps repository errors onto HTTP statuses: validation
// failures are the caller's fault, everything else is the store's.
func writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, ledger.ErrUnknownCashbook):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, ledger.ErrAuthRequired):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, store.ErrDuplicateID):
		writeError(w, http.StatusConflict, err)
	default:
		ctx := r.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Repository error",
			log.FieldError, err.Error(), log.FieldPath, r.URL.Path)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidCategory,
		core.ErrInvalidDirection,
		core.ErrInvalidPaymentMode,
		core.ErrMissingLedger,
		core.ErrMissingID,
		core.ErrEmptyCashbookName,
		core.ErrEmptyCategoryName,
		core.ErrBuiltinCategoryName,
		core.ErrDuplicateCategoryName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
