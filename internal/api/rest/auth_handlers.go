package rest

import (
	"net/http"

	"github.com/fortuna/syndicate/internal/service"
)

// Register creates an account
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	session, err := h.auth.Register(r.Context(), in)
	if err != nil {
		respondServiceError(w, err, "Failed to register")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Login signs a user in
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	session, err := h.auth.Login(r.Context(), in)
	if err != nil {
		respondServiceError(w, err, "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// Me returns the signed-in user
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, currentUser(r))
}

// VerifyAdmin grants admin rights for the correct admin code
func (h *Handler) VerifyAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := h.auth.VerifyAdmin(r.Context(), currentUser(r), body.Code); err != nil {
		respondServiceError(w, err, "Failed to verify admin")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin access granted",
	})
}
