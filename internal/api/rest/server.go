package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Server represents the REST API server
type Server struct {
	port    string
	server  *http.Server
	handler *Handler
	router  *mux.Router
}

// NewServer creates a new REST API server
func NewServer(port string, deps Deps, corsOrigins []string) *Server {
	handler := NewHandler(deps)

	router := mux.NewRouter()

	// Apply middleware
	router.Use(RecoveryMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(CORSMiddleware(corsOrigins))

	// Health check
	router.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/", handler.Root).Methods("GET")
	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Auth
	api.HandleFunc("/auth/register", handler.Register).Methods("POST")
	api.HandleFunc("/auth/login", handler.Login).Methods("POST")
	api.HandleFunc("/auth/me", handler.requireUser(handler.Me)).Methods("GET")
	api.HandleFunc("/admin/verify", handler.requireUser(handler.VerifyAdmin)).Methods("POST")

	// Public and VIP bets
	api.HandleFunc("/bets/today", handler.TodayBets).Methods("GET")
	api.HandleFunc("/bets/results", handler.Results).Methods("GET")
	api.HandleFunc("/bets/vip/today", handler.requireVIP(handler.VIPTodayBets)).Methods("GET")
	api.HandleFunc("/bets/vip/results", handler.requireVIP(handler.VIPResults)).Methods("GET")
	api.HandleFunc("/stats", handler.Stats).Methods("GET")

	// Admin bets
	api.HandleFunc("/admin/bets", handler.requireAdmin(handler.CreateBet)).Methods("POST")
	api.HandleFunc("/admin/bets", handler.requireAdmin(handler.ListBets)).Methods("GET")
	api.HandleFunc("/admin/bets/{betID}", handler.requireAdmin(handler.UpdateBet)).Methods("PUT")
	api.HandleFunc("/admin/bets/{betID}", handler.requireAdmin(handler.DeleteBet)).Methods("DELETE")

	// Bulk import
	api.HandleFunc("/admin/import/preview", handler.requireAdmin(handler.PreviewImport)).Methods("POST")
	api.HandleFunc("/admin/import", handler.requireAdmin(handler.Import)).Methods("POST")
	api.HandleFunc("/admin/import/export", handler.requireAdmin(handler.ImportExport)).Methods("POST")

	// Telegram
	api.HandleFunc("/admin/telegram/updates", handler.requireAdmin(handler.TelegramUpdates)).Methods("GET")
	api.HandleFunc("/admin/telegram/import", handler.requireAdmin(handler.TelegramImport)).Methods("POST")
	api.HandleFunc("/admin/telegram/import-manual", handler.requireAdmin(handler.TelegramImportManual)).Methods("POST")

	// Checkout
	api.HandleFunc("/checkout/create", handler.requireUser(handler.CreateCheckout)).Methods("POST")
	api.HandleFunc("/checkout/status/{sessionID}", handler.requireUser(handler.CheckoutStatus)).Methods("GET")
	api.HandleFunc("/webhook/stripe", handler.StripeWebhook).Methods("POST")

	// Notifications
	api.HandleFunc("/notifications/subscribe", handler.requireUser(handler.Subscribe)).Methods("POST")
	api.HandleFunc("/notifications/unsubscribe", handler.requireUser(handler.Unsubscribe)).Methods("DELETE")
	api.HandleFunc("/notifications/status", handler.requireUser(handler.SubscriptionStatus)).Methods("GET")
	api.HandleFunc("/notifications/latest", handler.LatestNotifications).Methods("GET")
	api.HandleFunc("/admin/notifications/send", handler.requireAdmin(handler.SendNotification)).Methods("POST")
	api.HandleFunc("/admin/notifications", handler.requireAdmin(handler.ListNotifications)).Methods("GET")
	api.HandleFunc("/admin/notifications/subscribers", handler.requireAdmin(handler.SubscriberCount)).Methods("GET")

	// Preflight requests for any route
	router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return &Server{
		port:    port,
		handler: handler,
		router:  router,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the REST API server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
