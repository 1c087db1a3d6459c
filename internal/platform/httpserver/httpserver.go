// Package httpserver builds the operator HTTP server.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// New builds a server whose internal errors go to logger. The ops routes are
// small and local, so every phase gets a short bound.
func New(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}
