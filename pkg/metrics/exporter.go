package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultReadHeaderTimeout = 10 * time.Second

// Exporter serves the rawkit metrics over HTTP.
type Exporter struct {
	addr     string
	server   *http.Server
	registry *prometheus.Registry
	mu       sync.Mutex
	started  bool
}

// NewExporter creates an exporter serving /metrics and /health at addr.
func NewExporter(addr string) *Exporter {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Exporter{
		addr:     addr,
		registry: reg,
	}
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler returns the metrics endpoint handler.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Start serves until Shutdown. It returns http.ErrServerClosed after a
// graceful shutdown.
func (e *Exporter) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	e.server = &http.Server{
		Addr:              e.addr,
		Handler:           mux,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
	e.started = true
	e.mu.Unlock()

	return e.server.ListenAndServe()
}

// Shutdown gracefully stops the exporter.
func (e *Exporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.server != nil && e.started {
		e.started = false
		return e.server.Shutdown(ctx)
	}
	return nil
}
