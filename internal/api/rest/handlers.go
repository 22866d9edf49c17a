package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/fortuna/syndicate/internal/importer"
	"github.com/fortuna/syndicate/internal/ingest"
	"github.com/fortuna/syndicate/internal/service"
)

const (
	serviceName    = "syndicate"
	serviceVersion = "1.0.0"
)

// PostSource fetches channel posts awaiting import
type PostSource interface {
	FetchPosts(ctx context.Context) ([]ingest.Post, error)
}

// HealthChecker is a dependency probed by the health endpoint
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps wires the handler to its services
type Deps struct {
	Auth          *service.AuthService
	Bets          *service.BetService
	Stats         *service.StatsService
	Notifications *service.NotificationService
	Subscriptions *service.SubscriptionService
	Importer      *importer.Importer
	Ingester      *ingest.Ingester
	Telegram      PostSource
	Health        map[string]HealthChecker
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	auth          *service.AuthService
	bets          *service.BetService
	stats         *service.StatsService
	notifications *service.NotificationService
	subscriptions *service.SubscriptionService
	importer      *importer.Importer
	ingester      *ingest.Ingester
	telegram      PostSource
	health        map[string]HealthChecker
}

// NewHandler creates a new handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		auth:          deps.Auth,
		bets:          deps.Bets,
		stats:         deps.Stats,
		notifications: deps.Notifications,
		subscriptions: deps.Subscriptions,
		importer:      deps.Importer,
		ingester:      deps.Ingester,
		telegram:      deps.Telegram,
		health:        deps.Health,
	}
}

// Root identifies the API
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "The 2.5 Syndicate API"})
}

// HealthCheck probes the database and cache
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.health))
	for name, c := range h.health {
		if err := c.HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":  state,
		"service": serviceName,
		"version": serviceVersion,
		"checks":  checks,
	})
}
