// Package metrics exposes simulation progress as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nvandessel/graphrat/internal/sim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graphrat"

// Collector implements sim.Observer and records every event it sees.
type Collector struct {
	steps        prometheus.Counter
	batches      prometheus.Counter
	ratMoves     prometheus.Counter
	fallbacks    prometheus.Counter
	stepDuration prometheus.Histogram
	ratsPerSec   prometheus.Gauge
	rats         int
}

// NewCollector registers the simulation metrics with reg. rats is the rat
// count of the run being observed; it scales the throughput gauge.
func NewCollector(reg prometheus.Registerer, rats int) *Collector {
	f := promauto.With(reg)
	return &Collector{
		steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "steps_total",
			Help:      "Completed simulation steps",
		}),
		batches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "batches_total",
			Help:      "Committed batches",
		}),
		ratMoves: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "rat_moves_total",
			Help:      "Rat moves committed, including rats that stayed put",
		}),
		fallbacks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "move_fallbacks_total",
			Help:      "Moves that fell through the cumulative weights",
		}),
		stepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "step_duration_seconds",
			Help:      "Wall time per simulation step",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		ratsPerSec: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sim",
			Name:      "rats_per_second",
			Help:      "Rat updates per second over the most recent step",
		}),
		rats: rats,
	}
}

func (c *Collector) BatchCommitted(size int) {
	c.batches.Inc()
	c.ratMoves.Add(float64(size))
}

func (c *Collector) StepCompleted(step int, elapsed time.Duration) {
	c.steps.Inc()
	c.stepDuration.Observe(elapsed.Seconds())
	if secs := elapsed.Seconds(); secs > 0 {
		c.ratsPerSec.Set(float64(c.rats) / secs)
	}
}

func (c *Collector) MoveFallback(sim.Fallback) {
	c.fallbacks.Inc()
}

// Handler returns an HTTP handler serving the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Server serves /metrics until Shutdown.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// Serve starts serving g on addr in the background. Use ":0" for an
// ephemeral port; Addr reports the bound address.
func Serve(addr string, g prometheus.Gatherer, logger *slog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))

	s := &Server{
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		ln:     ln,
		logger: logger,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return s, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
