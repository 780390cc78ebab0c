// Package server owns the HTTP lifecycle: dual-stack listeners, route
// mounting, SSDP startup, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/udlna/udlna/conf"
	"github.com/udlna/udlna/log"
	"github.com/udlna/udlna/model"
	"github.com/udlna/udlna/server/dlna"
)

const shutdownTimeout = 5 * time.Second

// Server binds the media library to the DLNA router and runs the HTTP and
// SSDP frontends.
type Server struct {
	router *dlna.Router
}

// New wires a server for the given library. serverUUID is the bare UUID
// string used in the device description and every SSDP advertisement.
func New(lib *model.Library, serverName, serverUUID string) *Server {
	return &Server{
		router: dlna.New(lib, serverName, serverUUID, conf.Server.Port),
	}
}

// Run serves until ctx is canceled, then shuts down gracefully: SSDP byebye
// first (bounded to a second), then HTTP drain bounded by shutdownTimeout.
// A nil error means a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	mux := chi.NewRouter()
	mux.Mount("/", s.router.Routes())

	listeners, err := s.listen()
	if err != nil {
		return err
	}

	if err := s.router.StartSSDP(ctx); err != nil {
		for _, l := range listeners {
			_ = l.Close()
		}
		return err
	}

	srv := &http.Server{Handler: mux}
	errC := make(chan error, len(listeners))
	for _, l := range listeners {
		log.Info("HTTP server listening", "address", l.Addr())
		go func(l net.Listener) {
			errC <- srv.Serve(l)
		}(l)
	}

	select {
	case <-ctx.Done():
	case err := <-errC:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.router.StopSSDP()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}

	log.Info("Shutting down - sending SSDP byebye...")
	s.router.StopSSDP()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown did not drain in time", err)
	}
	log.Info("Goodbye.")
	return nil
}

// listen opens the HTTP listeners. Default mode binds both address families
// separately (the tcp6 network implies V6ONLY, so the binds never collide);
// a host without IPv6 simply loses that listener. Localhost mode binds
// 127.0.0.1 only and is meant for local testing without announcing on the
// LAN.
func (s *Server) listen() ([]net.Listener, error) {
	port := conf.Server.Port

	if conf.Server.Localhost {
		l, err := net.Listen("tcp4", fmt.Sprintf("127.0.0.1:%d", port))
		if err != nil {
			return nil, fmt.Errorf("failed to bind 127.0.0.1:%d: %w", port, err)
		}
		return []net.Listener{l}, nil
	}

	l4, err := net.Listen("tcp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("failed to bind 0.0.0.0:%d: %w", port, err)
	}
	listeners := []net.Listener{l4}

	l6, err := net.Listen("tcp6", fmt.Sprintf("[::]:%d", port))
	if err != nil {
		log.Debug("IPv6 HTTP listener unavailable", "reason", err)
	} else {
		listeners = append(listeners, l6)
	}
	return listeners, nil
}
