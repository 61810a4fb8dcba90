package http

import (
	"net/http"

	"wallet/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.storage.ListAccounts(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	account, err := s.storage.GetAccount(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account := core.Account{UserID: userID(r)}
	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Icon != nil {
		account.Icon = *req.Icon
	}
	if req.Color != nil {
		account.Color = *req.Color
	}
	if req.Balance != nil {
		// Opening balances may be zero or negative
		balance, err := core.ParseSignedAmount(*req.Balance)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		account.Balance = balance
	}

	if err := account.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.storage.CreateAccount(r.Context(), &account); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

// handleUpdateAccount changes name, icon and color. Balances move only
// through transactions, never through this endpoint.
func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Balance != nil {
		writeError(w, http.StatusUnprocessableEntity, "balance cannot be set directly")
		return
	}

	account, err := s.storage.GetAccount(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.Name != nil {
		account.Name = *req.Name
	}
	if req.Icon != nil {
		account.Icon = *req.Icon
	}
	if req.Color != nil {
		account.Color = *req.Color
	}

	if err := account.Validate(); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := s.storage.UpdateAccountMeta(r.Context(), &account); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	if err := s.storage.DeleteAccount(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateReports(userID(r))
	w.WriteHeader(http.StatusNoContent)
}
