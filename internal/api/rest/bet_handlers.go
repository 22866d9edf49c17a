package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fortuna/syndicate/internal/store"
)

// TodayBets returns today's free tips
func (h *Handler) TodayBets(w http.ResponseWriter, r *http.Request) {
	h.listToday(w, r, false)
}

// VIPTodayBets returns today's VIP tips
func (h *Handler) VIPTodayBets(w http.ResponseWriter, r *http.Request) {
	h.listToday(w, r, true)
}

// Results returns settled free tips
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	h.listResults(w, r, false)
}

// VIPResults returns settled VIP tips
func (h *Handler) VIPResults(w http.ResponseWriter, r *http.Request) {
	h.listResults(w, r, true)
}

func (h *Handler) listToday(w http.ResponseWriter, r *http.Request, vip bool) {
	bets, err := h.bets.Today(r.Context(), vip)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch today's bets", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(bets))
}

func (h *Handler) listResults(w http.ResponseWriter, r *http.Request, vip bool) {
	bets, err := h.bets.Results(r.Context(), vip)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch results", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(bets))
}

// Stats returns the public track record
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to compute stats", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// CreateBet adds a pending tip
func (h *Handler) CreateBet(w http.ResponseWriter, r *http.Request) {
	var in store.BetInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	bet, err := h.bets.Create(r.Context(), in)
	if err != nil {
		respondServiceError(w, err, "Failed to create bet")
		return
	}
	respondJSON(w, http.StatusOK, bet)
}

// ListBets returns every bet for the admin view
func (h *Handler) ListBets(w http.ResponseWriter, r *http.Request) {
	bets, err := h.bets.All(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch bets", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNil(bets))
}

// UpdateBet settles or edits a bet
func (h *Handler) UpdateBet(w http.ResponseWriter, r *http.Request) {
	betID := mux.Vars(r)["betID"]

	var u store.BetUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if u.Empty() {
		respondError(w, http.StatusBadRequest, "Nothing to update", nil)
		return
	}

	bet, err := h.bets.Update(r.Context(), betID, u)
	if err != nil {
		respondServiceError(w, err, "Failed to update bet")
		return
	}
	respondJSON(w, http.StatusOK, bet)
}

// DeleteBet removes a bet
func (h *Handler) DeleteBet(w http.ResponseWriter, r *http.Request) {
	if err := h.bets.Delete(r.Context(), mux.Vars(r)["betID"]); err != nil {
		respondServiceError(w, err, "Failed to delete bet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// nonNil keeps empty lists encoding as [] rather than null
func nonNil(bets []*store.Bet) []*store.Bet {
	if bets == nil {
		return []*store.Bet{}
	}
	return bets
}
