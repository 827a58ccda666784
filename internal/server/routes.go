package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mockmate-app/mockmate-live/internal/relay"
	"github.com/mockmate-app/mockmate-live/internal/room"
	"github.com/mockmate-app/mockmate-live/internal/signaling"
)

// NewRouter wires the relay's HTTP surface: health, room-code generation for
// browser clients, and the websocket upgrade.
func NewRouter(hub *relay.Hub, cfg *Config) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/health", healthHandler(hub))
	r.Get("/generate-room", generateRoomHandler)
	r.Get("/ws", serveWs(hub, cfg))

	return r
}

func healthHandler(hub *relay.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"rooms":  hub.RoomCount(),
		})
	}
}

func generateRoomHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"code": room.GenerateCode()})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// The relay is trusted infrastructure for a small peer count; origin
	// enforcement lives in the CORS layer for the HTTP endpoints and is left
	// open for the socket itself.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// serveWs upgrades the connection, registers it with the hub and starts the
// read/write pumps that own all websocket I/O for its lifetime.
func serveWs(hub *relay.Hub, cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := &relay.Client{
			ID:   uuid.NewString(),
			Hub:  hub,
			Conn: conn,
			Send: make(chan *signaling.Message, cfg.SendBuffer),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}
