package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/studio3d/scenesync/internal/config"
	"github.com/studio3d/scenesync/internal/middleware"
	"github.com/studio3d/scenesync/internal/storage"
	"github.com/studio3d/scenesync/internal/storage/memory"
	"github.com/studio3d/scenesync/internal/storage/sqlite"
	"github.com/studio3d/scenesync/internal/storage/valkey"
	"github.com/studio3d/scenesync/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
	cfg := config.Load()

	store := newStore(cfg)

	hub := ws.NewHub()
	go hub.Run()

	relay := ws.NewRelayHandler(hub, store, cfg.RosterLimit)

	r := mux.NewRouter()
	r.HandleFunc("/ws", relay.ServeWS)
	r.HandleFunc("/api/v1/rooms/{roomID}/occupants", relay.ListOccupants).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	handler := middleware.CORS(cfg.CORSOrigin)(r)

	log.Printf("Relay server started at %s (store: %s)", cfg.Addr, cfg.StoreBackend)
	log.Fatal(http.ListenAndServe(cfg.Addr, handler))
}

func newStore(cfg config.Config) storage.OccupantStore {
	switch cfg.StoreBackend {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open sqlite store at %s: %v", cfg.SQLitePath, err)
		}
		return store
	case "valkey":
		store, err := valkey.New(cfg.ValkeyAddr)
		if err != nil {
			log.Fatalf("Failed to connect to valkey at %s: %v", cfg.ValkeyAddr, err)
		}
		return store
	default:
		return memory.NewOccupantStore()
	}
}
