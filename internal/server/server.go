// Package server exposes the status page, a state snapshot endpoint and the
// WebSocket feed of state changes.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/soar/dsmapper/internal/gamepad"
	"github.com/soar/dsmapper/internal/hub"
)

// StateSource provides the latest published mapper state.
type StateSource interface {
	CurrentState() gamepad.State
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	quitter     hub.Quitter
	state       StateSource
	assets      *assets
	addr        string
	httpServer  *http.Server
}

// New prepares a server. The frontend files are minified here so a broken
// asset fails startup rather than the first request.
func New(h *hub.Hub, b *hub.Broadcaster, q hub.Quitter, state StateSource, frontendFS fs.FS, addr string) (*Server, error) {
	a, err := loadAssets(frontendFS)
	if err != nil {
		return nil, fmt.Errorf("load frontend: %w", err)
	}
	return &Server{
		hub:         h,
		broadcaster: b,
		quitter:     q,
		state:       state,
		assets:      a,
		addr:        addr,
	}, nil
}

// Handler returns the request multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWebSocket(s.hub, s.broadcaster, s.quitter))
	mux.HandleFunc("/api/state", handleState(s.state))
	mux.Handle("/", s.assets)
	return mux
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("Status page listening on http://%s", s.addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		log.Println("Shutting down HTTP server...")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
