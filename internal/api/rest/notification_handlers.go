package rest

import (
	"net/http"

	"github.com/fortuna/syndicate/internal/service"
	"github.com/fortuna/syndicate/internal/store"
)

// Subscribe stores the caller's push subscription
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var in service.SubscribeInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := h.notifications.Subscribe(r.Context(), currentUser(r).ID, in); err != nil {
		respondServiceError(w, err, "Failed to subscribe")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Subscribed to notifications",
	})
}

// Unsubscribe removes the caller's push subscription
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Unsubscribe(r.Context(), currentUser(r).ID); err != nil {
		respondServiceError(w, err, "Failed to unsubscribe")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Unsubscribed from notifications",
	})
}

// SubscriptionStatus reports whether the caller is subscribed
func (h *Handler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	subscribed, err := h.notifications.Subscribed(r.Context(), currentUser(r).ID)
	if err != nil {
		respondServiceError(w, err, "Failed to check subscription")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

// LatestNotifications returns recent notifications for display
func (h *Handler) LatestNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.Latest(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilNotifications(list))
}

// SendNotification stores and fans out an admin notification
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var in service.SendInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	delivery, err := h.notifications.Send(r.Context(), in, currentUser(r).ID)
	if err != nil {
		respondServiceError(w, err, "Failed to send notification")
		return
	}
	respondJSON(w, http.StatusOK, delivery)
}

// ListNotifications returns sent notifications for the admin view
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := h.notifications.History(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch notifications", err)
		return
	}
	respondJSON(w, http.StatusOK, nonNilNotifications(list))
}

// SubscriberCount returns how many users are subscribed
func (h *Handler) SubscriberCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notifications.SubscriberCount(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count subscribers", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

func nonNilNotifications(list []*store.Notification) []*store.Notification {
	if list == nil {
		return []*store.Notification{}
	}
	return list
}
