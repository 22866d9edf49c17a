package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/service"
	"github.com/fortuna/syndicate/internal/store"
)

type ctxKey int

const userKey ctxKey = iota

// RecoveryMiddleware turns panics into 500 responses
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(r.Context()).
					Str("panic", fmt.Sprint(rec)).
					Bytes("stack", debug.Stack()).
					Msg("Recovered from panic")
				respondError(w, http.StatusInternalServerError, "Internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware assigns request IDs and logs every request
func LoggingMiddleware(next http.Handler) http.Handler {
	return logger.HTTPMiddleware(next)
}

// CORSMiddleware allows the listed origins; "*" allows any
func CORSMiddleware(origins []string) mux.MiddlewareFunc {
	allowAll := len(origins) == 0
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.TrimRight(o, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && (allowAll || allowed[origin]) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID, Stripe-Signature")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireUser rejects requests without a valid bearer token
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(w, http.StatusUnauthorized, "Not authenticated", nil)
			return
		}

		user, err := h.auth.Authenticate(r.Context(), strings.TrimSpace(token))
		if errors.Is(err, service.ErrInvalidToken) {
			respondError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to authenticate", err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = logger.With(ctx, "user_id", user.ID)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin rejects non-admin users
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsAdmin {
			respondError(w, http.StatusForbidden, "Admin access required", nil)
			return
		}
		next(w, r)
	})
}

// requireVIP rejects users without an active VIP subscription
func (h *Handler) requireVIP(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsVIP {
			respondError(w, http.StatusForbidden, "VIP subscription required", nil)
			return
		}
		next(w, r)
	})
}

// currentUser returns the user set by requireUser
func currentUser(r *http.Request) *store.User {
	user, _ := r.Context().Value(userKey).(*store.User)
	return user
}
