package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mathduel/arena/internal/config"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: implement proper origin checking for production
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// FriendRoutes is the friend-protocol HTTP surface the server mounts.
type FriendRoutes struct {
	SendRequest http.HandlerFunc
	Accept      http.HandlerFunc
	Reject      http.HandlerFunc
	Remove      http.HandlerFunc
	Status      http.HandlerFunc
	Search      http.HandlerFunc
	Sync        http.HandlerFunc
}

// NewHTTPServer wires the health, metrics, friend and realtime routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, friends FriendRoutes, arenaWS http.Handler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/friends/request", friends.SendRequest)
	mux.HandleFunc("/v1/friends/accept", friends.Accept)
	mux.HandleFunc("/v1/friends/reject", friends.Reject)
	mux.HandleFunc("/v1/friends/remove", friends.Remove)
	mux.HandleFunc("/v1/friends/status", friends.Status)
	mux.HandleFunc("/v1/players/search", friends.Search)
	mux.HandleFunc("/v1/players/sync", friends.Sync)

	mux.Handle("/ws/arena", arenaWS)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsMiddleware(cfg.CORS, mux),
	}
}

// corsMiddleware applies the configured CORS policy to every route. The
// WebSocket endpoint is exempt in practice: upgrades never preflight.
func corsMiddleware(cfg config.CORS, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && originAllowed(cfg.AllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
