package http

import (
	"net/http"
	"strings"

	"github.com/kabirpofficial/trackify/internal/auth"
	"github.com/kabirpofficial/trackify/internal/core"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	categories, err := s.categories.List(r.Context(), identity.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := (core.Category{Name: strings.TrimSpace(req.Name)}).Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := s.categories.Create(r.Context(), identity.UserID, strings.TrimSpace(req.Name))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, category)
}
