package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fortuna/syndicate/internal/logger"
)

// Server pushes notifications to browsers over websocket
type Server struct {
	server   *http.Server
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server listening on port. An empty
// origin list or "*" accepts every origin.
func NewServer(port string, allowedOrigins []string) *Server {
	s := &Server{hub: NewHub()}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Handler returns the websocket routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/notifications", s.handleNotifications)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Run starts the hub; it returns when ctx is done
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

// Start listens until Shutdown. It returns http.ErrServerClosed once shut down,
// including when Shutdown ran first.
func (s *Server) Start() error {
	logger.Info(context.Background()).Str("addr", s.server.Addr).Msg("WebSocket server listening")
	return s.server.ListenAndServe()
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WebSocketContext(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if !s.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"clients": s.hub.ClientCount(),
	})
}

// Broadcast sends data to every connected client
func (s *Server) Broadcast(data []byte) {
	s.hub.Broadcast(data)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
