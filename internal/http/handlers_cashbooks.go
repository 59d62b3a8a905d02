package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"cashflow/internal/core"
)

func (s *Server) handleListCashbooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.repo.ListCashbooks(r.Context())
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Cashbooks []core.Cashbook `json:"cashbooks"`
	}{Cashbooks: books})
}

func (s *Server) handleCreateCashbook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	book, err := s.repo.CreateCashbook(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Description))
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

func (s *Server) handleRenameCashbook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	book, err := s.repo.RenameCashbook(r.Context(), r.PathValue("id"), sanitizeInput(req.Name))
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleDeleteCashbook(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteCashbook(r.Context(), r.PathValue("id")); err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDuplicateCashbook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	// An empty body duplicates under a derived name.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	book, err := s.repo.DuplicateCashbook(r.Context(), r.PathValue("id"), sanitizeInput(req.Name))
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}
