package main

import (
	"log"
	"log/slog"
	"net/http"

	"github.com/mockmate-app/mockmate-live/internal/logging"
	"github.com/mockmate-app/mockmate-live/internal/relay"
	"github.com/mockmate-app/mockmate-live/internal/server"
)

func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Init(logging.ParseLevel(cfg.Logging.Level, slog.LevelInfo))

	hub := relay.NewHub()
	go hub.Run()

	router := server.NewRouter(hub, cfg)

	slog.Info("starting signaling relay", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatal(err)
	}
}
