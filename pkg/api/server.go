// Package api serves the operator dashboard: JSON status endpoints and a
// WebSocket feed of notifier and session activity.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sipeed/picotune/pkg/bus"
	"github.com/sipeed/picotune/pkg/config"
	"github.com/sipeed/picotune/pkg/logger"
	"github.com/sipeed/picotune/pkg/settings"
)

// CallCounter reports how many voice calls are active.
type CallCounter interface {
	Count() int
}

// RoomLister reports which rooms have a running status task.
type RoomLister interface {
	Rooms() []string
}

// GuildStore exposes persisted guild settings.
type GuildStore interface {
	Health(ctx context.Context) error
	List(ctx context.Context) ([]settings.Guild, error)
}

// Deps are the components the dashboard reports on. Any of them may be nil.
type Deps struct {
	Calls  CallCounter
	Rooms  RoomLister
	Guilds GuildStore
}

// Server is the HTTP API server for the dashboard.
type Server struct {
	cfg         config.DashboardConfig
	deps        Deps
	wsHub       *WSHub
	eventBridge *EventBridge
	startTime   time.Time
	server      *http.Server
}

func NewServer(cfg config.DashboardConfig, msgBus *bus.MessageBus, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		startTime: time.Now(),
	}
	s.wsHub = NewWSHub(s.snapshot)
	s.eventBridge = NewEventBridge(msgBus, s.wsHub)
	return s
}

// Handler returns the routed and authenticated handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/guilds", s.handleGuilds)
	mux.HandleFunc("GET /api/ws", s.wsHub.HandleWebSocket)
	return corsMiddleware(authMiddleware(s.cfg.APIKey, mux))
}

// Start begins listening on the configured address. It returns once the
// listener goroutine is running.
func (s *Server) Start(ctx context.Context) error {
	if s.cfg.Addr == "" {
		return errors.New("dashboard address not configured")
	}
	s.server = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.InfoCF("api", "Dashboard API server starting", map[string]interface{}{
		"addr": s.cfg.Addr,
	})

	go s.wsHub.Run(ctx)
	s.eventBridge.Run(ctx)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorCF("api", "Server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// --- Middleware ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isAllowedOrigin checks if the origin is a trusted localhost address.
func isAllowedOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "http://127.0.0.1", "https://localhost", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if s.deps.Guilds != nil {
		if err := s.deps.Guilds.Health(r.Context()); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleGuilds(w http.ResponseWriter, r *http.Request) {
	if s.deps.Guilds == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	guilds, err := s.deps.Guilds.List(r.Context())
	if err != nil {
		logger.ErrorCF("api", "Listing guild settings failed", map[string]interface{}{
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "settings unavailable"})
		return
	}
	out := make([]map[string]interface{}, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, map[string]interface{}{
			"guild_id":          g.GuildID,
			"status_channel_id": g.StatusChannelID,
			"notifier_enabled":  g.NotifierEnabled,
			"updated":           humanize.Time(g.UpdatedAt),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// snapshot is shared by /api/status and the WebSocket status ticks.
func (s *Server) snapshot() map[string]interface{} {
	uptime := time.Since(s.startTime)
	status := map[string]interface{}{
		"uptime":         formatDuration(uptime),
		"uptime_seconds": int(uptime.Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"ws_clients":     s.wsHub.ClientCount(),
	}
	if s.deps.Calls != nil {
		status["active_calls"] = s.deps.Calls.Count()
	}
	if s.deps.Rooms != nil {
		rooms := s.deps.Rooms.Rooms()
		if rooms == nil {
			rooms = []string{}
		}
		status["notifier_rooms"] = rooms
	}
	return status
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
