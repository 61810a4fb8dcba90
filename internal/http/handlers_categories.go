package http

import (
	"net/http"

	"wallet/internal/core"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	category, err := s.storage.GetCategory(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category := core.Category{UserID: userID(r)}
	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Type != nil {
		category.Type = core.TransactionType(*req.Type)
	}
	if req.Icon != nil {
		category.Icon = *req.Icon
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	if err := category.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.storage.CreateCategory(r.Context(), &category); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := s.storage.GetCategory(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Type != nil {
		category.Type = core.TransactionType(*req.Type)
	}
	if req.Icon != nil {
		category.Icon = *req.Icon
	}
	if req.Color != nil {
		category.Color = *req.Color
	}

	if err := category.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.storage.UpdateCategory(r.Context(), &category); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := s.storage.DeleteCategory(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	w.WriteHeader(http.StatusNoContent)
}
