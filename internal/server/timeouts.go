// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// The read, write, and idle timeouts come from the `http` configuration
// section (defaults 10 s, 15 s, and 60 s) so slow-loris headers, runaway
// responses, and idle keep-alives are all bounded.

package server

import (
	"net/http"

	"github.com/yanizio/drinks/internal/config"
)

// New constructs an *http.Server from the http configuration section.
func New(cfg config.HTTP, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
