// Package health reports the state of the gateway's dependencies over HTTP.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Probe returns nil when the dependency it checks is usable
type Probe func(ctx context.Context) error

// GaugeFunc returns current values for the metrics endpoint, keyed by metric name suffix
type GaugeFunc func() map[string]int

type Status struct {
	Healthy    bool              `json:"healthy"`
	Components map[string]string `json:"components"`
	Errors     []string          `json:"errors"`
}

// Checker runs named probes. A checker without probes is always healthy.
type Checker struct {
	mu      sync.RWMutex
	probes  map[string]Probe
	gauges  GaugeFunc
	timeout time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{probes: make(map[string]Probe), timeout: timeout}
}

func (c *Checker) Add(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

func (c *Checker) SetGauges(fn GaugeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges = fn
}

func (c *Checker) Check(ctx context.Context) Status {
	c.mu.RLock()
	names := make([]string, 0, len(c.probes))
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		names = append(names, name)
		probes[name] = p
	}
	c.mu.RUnlock()
	sort.Strings(names)

	status := Status{
		Healthy:    true,
		Components: make(map[string]string, len(names)),
		Errors:     []string{},
	}
	for _, name := range names {
		if err := probes[name](ctx); err != nil {
			status.Healthy = false
			status.Components[name] = "down"
			status.Errors = append(status.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		status.Components[name] = "up"
	}
	return status
}

// ServeHTTP answers 200 with the status body, or 503 when a probe fails
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	status := c.Check(ctx)
	if !status.Healthy {
		log.Warn().Strs("errors", status.Errors).Msg("health check failed")
	}

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to write health response")
	}
}

// Export renders the health state and gauges in the Prometheus text format
func (c *Checker) Export(ctx context.Context, namespace string) string {
	status := c.Check(ctx)

	var b strings.Builder
	healthy := 0
	if status.Healthy {
		healthy = 1
	}
	writeGauge(&b, namespace+"_healthy", "Whether every dependency is reachable", healthy)

	c.mu.RLock()
	gauges := c.gauges
	c.mu.RUnlock()
	if gauges == nil {
		return b.String()
	}

	values := gauges()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeGauge(&b, namespace+"_"+name, "", values[name])
	}
	return b.String()
}

// MetricsHandler serves Export under namespace
func (c *Checker) MetricsHandler(namespace string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
		defer cancel()
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if _, err := w.Write([]byte(c.Export(ctx, namespace))); err != nil {
			log.Error().Err(err).Msg("failed to write metrics response")
		}
	}
}

func writeGauge(b *strings.Builder, name, help string, value int) {
	if help != "" {
		fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	}
	fmt.Fprintf(b, "# TYPE %s gauge\n%s %d\n", name, name, value)
}
