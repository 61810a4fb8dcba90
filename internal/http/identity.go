package http

import (
	"context"
	"net/http"
	"strconv"
)

// UserIDHeader identifies the acting user. Authentication proper is handled
// upstream; the service trusts this header within its own network.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// withIdentity requires a valid X-User-ID header and puts the ID in context.
func withIdentity(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserIDHeader)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusUnauthorized, "invalid "+UserIDHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next(w, r.WithContext(ctx))
	}
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}
