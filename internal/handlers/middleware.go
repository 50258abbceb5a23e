package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"inboxsearch/internal/models"
	"inboxsearch/internal/ratelimit"
	"inboxsearch/internal/session"
)

type contextKey string

const callerKey contextKey = "caller"

// CallerFrom returns the authenticated caller placed by the auth middleware.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(models.Caller)
	return caller, ok
}

// RequestLogger tags each request with an id and logs method, path and
// duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("requestID", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// Auth resolves the bearer credential to a caller and rejects requests
// without a valid session.
func Auth(provider session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			caller, err := provider.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, session.ErrInvalidSession) {
					respondError(w, http.StatusUnauthorized, "missing or invalid credentials")
					return
				}
				log.Error().Err(err).Msg("Session resolution failed")
				respondError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			ctx := context.WithValue(r.Context(), callerKey, *caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimit gates admission per caller before any search work runs.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok {
				respondError(w, http.StatusUnauthorized, "missing or invalid credentials")
				return
			}
			if err := limiter.Allow(caller.ID); err != nil {
				respondError(w, http.StatusTooManyRequests, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}
