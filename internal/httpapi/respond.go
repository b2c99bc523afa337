package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/pass"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/store"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/types"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: code, Message: msg})
}

// readJSON decodes a size-limited body, rejecting unknown fields.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service and store errors onto status codes.
// Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var parseErr *pass.ParseError
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		unauthorized(w, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "a record with the same unique value exists")
	case errors.Is(err, service.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
	case errors.Is(err, service.ErrInvalidSessions):
		writeError(w, http.StatusBadRequest, "invalid_sessions", err.Error())
	case errors.Is(err, user.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid_email", err.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.As(err, &parseErr):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg(op)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
