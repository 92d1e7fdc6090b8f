package http

import (
	"context"
	"net/http"
	"time"
)

// Server envuelve http.Server con timeouts y shutdown ordenado.
type Server struct {
	srv *http.Server
}

// ServerConfig parametriza el servidor.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer crea el servidor con el handler dado.
func NewServer(cfg ServerConfig, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}}
}

// Start bloquea sirviendo hasta que falle o se llame Shutdown.
func (s *Server) Start() error {
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drena las conexiones en curso y cierra el listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
