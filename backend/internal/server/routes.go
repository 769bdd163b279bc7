package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Keydrop/backend/internal/metrics"
	"github.com/BioHazard786/Keydrop/backend/internal/signaling"
)

// Options configures the HTTP surface of the relay.
type Options struct {
	Version         string
	MaxMessageBytes int64
	SendQueueSize   int
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
}

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// Browsers from any origin may join; rooms are the only boundary.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewMux registers the websocket endpoint, /health and /metrics.
func NewMux(router *signaling.Router, opts Options) *http.ServeMux {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	ws := ServeWs(router, opts)
	mux.HandleFunc("/ws", ws)
	// /ws/webrtc marks clients that can open peer connections.
	mux.HandleFunc("/ws/", ws)
	mux.HandleFunc("/health", healthCheckHandler(router, opts.Version))
	mux.Handle("/metrics", opts.Metrics.Handler())
	return mux
}

// ServeWs returns an http.HandlerFunc that upgrades session requests and
// hands the connection to the router.
func ServeWs(router *signaling.Router, opts Options) http.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("peerid") == "" {
			http.Error(w, signaling.ErrMissingPeerID.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
			return
		}

		client := signaling.NewClient(conn, opts.MaxMessageBytes, opts.SendQueueSize)
		go client.WritePump()

		peer, err := router.Connect(client, r)
		if err != nil {
			logger.Warn("session rejected", "remote", r.RemoteAddr, "err", err)
			client.Terminate()
			return
		}

		go client.ReadPump(router, peer)
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Rooms    int    `json:"rooms"`
	KeyRooms int    `json:"keyRooms"`
}

// Health Check endpoint
func healthCheckHandler(router *signaling.Router, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:   "ok",
			Version:  version,
			Rooms:    router.Rooms().Len(),
			KeyRooms: router.KeyRooms().Len(),
		})
	}
}
