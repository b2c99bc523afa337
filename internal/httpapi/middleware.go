package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/kragdb/internal/kragdb/service"
	"github.com/BrandonDHaskell/kragdb/internal/kragdb/user"
)

const requestIDHeader = "X-Request-Id"

// loggingMiddleware tags each request with an id, puts a request logger in
// the context for handlers (zerolog.Ctx) and logs one line per request.
func loggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now().UTC()

			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			l := logger.With().Str("request_id", reqID).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(l.WithContext(r.Context())))

			l.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("from", r.RemoteAddr).
				Int("status", ww.Status()).
				Dur("dur", time.Since(start)).
				Msg("http request")
		})
	}
}

type contextKey string

const actorKey contextKey = "actor"

// basicAuth resolves the caller from HTTP basic credentials (email and
// password) and stores them in the request context.
func basicAuth(admin *service.AdminService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, "missing basic credentials")
				return
			}

			u, err := admin.Authenticate(r.Context(), email, password)
			if errors.Is(err, service.ErrInvalidCredentials) {
				unauthorized(w, err.Error())
				return
			}
			if err != nil {
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("authenticate")
				writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="kragdb"`)
	writeError(w, http.StatusUnauthorized, "unauthorized", msg)
}

// actorFrom returns the authenticated caller. Only valid behind basicAuth.
func actorFrom(r *http.Request) user.User {
	u, _ := r.Context().Value(actorKey).(user.User)
	return u
}
