// Package httptransport builds the ingestion service's HTTP servers.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates *http.Server with provided handler.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// NewMetricsServer builds the standalone Prometheus scrape server the worker
// binary exposes next to its queue loops.
func NewMetricsServer(address string) *http.Server {
	scrape := http.NewServeMux()
	scrape.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:        address,
		Handler:     scrape,
		ReadTimeout: 5 * time.Second,
	}
}

// Shutdown drains srv, waiting at most grace for in-flight requests.
func Shutdown(srv *http.Server, grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(ctx)
}
