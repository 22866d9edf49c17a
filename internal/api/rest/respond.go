package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fortuna/syndicate/internal/importer"
	"github.com/fortuna/syndicate/internal/ingest/telegram"
	"github.com/fortuna/syndicate/internal/payments"
	"github.com/fortuna/syndicate/internal/service"
	"github.com/fortuna/syndicate/internal/store"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}

// respondServiceError maps a service error to a status. fallback is the
// message used for unexpected errors.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, importer.ErrNothingParsed):
		respondError(w, http.StatusBadRequest, "Could not parse the message. Check the format.", nil)
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusBadRequest, "Email already registered", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid credentials", nil)
	case errors.Is(err, service.ErrInvalidAdminCode):
		respondError(w, http.StatusForbidden, "Invalid admin code", nil)
	case errors.Is(err, service.ErrSessionNotOwned):
		respondError(w, http.StatusForbidden, "Checkout session belongs to another user", nil)
	case errors.Is(err, payments.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "Stripe not configured", nil)
	case errors.Is(err, telegram.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "Telegram bot not configured", nil)
	default:
		respondError(w, http.StatusInternalServerError, fallback, err)
	}
}

// decodeJSON reads a JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty request body")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
