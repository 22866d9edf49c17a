package rest

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/payments"
)

// maxWebhookBytes caps Stripe webhook payloads
const maxWebhookBytes = 64 << 10

// CreateCheckout opens a VIP checkout session for the caller
func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OriginURL string `json:"origin_url"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	origin := strings.TrimRight(strings.TrimSpace(body.OriginURL), "/")
	if origin == "" {
		respondError(w, http.StatusBadRequest, "origin_url is required", nil)
		return
	}

	checkout, err := h.subscriptions.CreateCheckout(r.Context(), currentUser(r), origin)
	if err != nil {
		respondServiceError(w, err, "Failed to create checkout session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"url":        checkout.URL,
		"session_id": checkout.SessionID,
	})
}

// CheckoutStatus polls a checkout session and grants VIP once paid
func (h *Handler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	session, err := h.subscriptions.Status(r.Context(), currentUser(r), mux.Vars(r)["sessionID"])
	if err != nil {
		respondServiceError(w, err, "Failed to fetch checkout status")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         session.Status,
		"payment_status": session.PaymentStatus,
		"amount_total":   session.AmountTotal,
		"currency":       session.Currency,
	})
}

// StripeWebhook handles signed Stripe events
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to read payload", err)
		return
	}

	err = h.subscriptions.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, payments.ErrIgnoredEvent):
		respondJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case errors.Is(err, payments.ErrNotConfigured):
		respondServiceError(w, err, "")
	default:
		logger.Error(r.Context()).Err(err).Msg("Webhook error")
		respondError(w, http.StatusBadRequest, "Webhook error", err)
	}
}
