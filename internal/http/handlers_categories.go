package http

import (
	"encoding/json"
	"net/http"

	"cashflow/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.repo.ListCategories(r.Context())
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Categories []core.Category `json:"categories"`
	}{Categories: cats})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ColorHex string `json:"colorHex"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cat, err := s.repo.AddCategory(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.ColorHex))
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.DeleteCategory(r.Context(), r.PathValue("name")); err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
