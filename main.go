package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wizduel/server/srv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func wsHandler(h *srv.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.HandleWS(conn)
	}
}

func main() {
	cfg, err := srv.LoadConfig()
	if err != nil {
		panic(err)
	}
	var addr string
	flag.StringVar(&addr, "addr", cfg.Addr, "server listen address, e.g. :8080")
	flag.Parse()

	log := srv.NewLogger(cfg.LogFile)
	defer log.Sync()

	spells, err := srv.LoadSpellCatalog(cfg.SpellFile)
	if err != nil {
		log.Fatalf("spell catalog: %v", err)
	}
	log.Infof("loaded %d spells from %s", spells.Len(), cfg.SpellFile)

	hub := srv.NewHub(cfg, spells, log)

	r := chi.NewRouter()
	r.Get("/ws", wsHandler(hub))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(hub.MetricsSnapshot())
	})
	r.Get("/data/spells.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(spells.Raw())
	})

	s := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("wizduel server listening on %s", addr)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
}
