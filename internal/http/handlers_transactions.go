package http

import (
	"net/http"
	"strconv"

	"wallet/internal/core"
	"wallet/internal/storage"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.TransactionFilter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Type:      core.TransactionType(q.Get("type")),
	}
	if v := q.Get("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		filter.CategoryID = id
	}
	if v := q.Get("account_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid account_id")
			return
		}
		filter.AccountID = id
	}

	transactions, err := s.ledger.List(r.Context(), userID(r), filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	tx, err := s.ledger.Get(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := req.toTransaction(userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.ledger.Create(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

// handleCreateTransfer is a convenience route for account-to-account moves.
func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	transferType := string(core.TypeTransfer)
	req.Type = &transferType

	tx, err := req.toTransaction(userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	created, err := s.ledger.Create(r.Context(), tx)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := s.ledger.Get(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated, err := req.overlay(existing)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := s.ledger.Update(r.Context(), userID(r), id, updated)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	writeJSON(w, http.StatusOK, toTransactionResponse(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if err := s.ledger.Delete(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	w.WriteHeader(http.StatusNoContent)
}
