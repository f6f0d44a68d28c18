package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/fedistream/internal/version"
)

// Stream states reported on /health.
const (
	streamListening = "listening"
	streamClosed    = "closed"
	streamFailed    = "failed"
)

type streamState struct {
	State string    `json:"state"`
	Since time.Time `json:"since"`
	Error string    `json:"error,omitempty"`
}

// streamTracker records the lifecycle of each configured stream.
type streamTracker struct {
	mu      sync.RWMutex
	streams map[string]streamState
}

func newStreamTracker() *streamTracker {
	return &streamTracker{streams: make(map[string]streamState)}
}

func (t *streamTracker) set(name, state string, err error) {
	s := streamState{State: state, Since: time.Now().UTC()}
	if err != nil {
		s.Error = err.Error()
	}
	t.mu.Lock()
	t.streams[name] = s
	t.mu.Unlock()
}

func (t *streamTracker) snapshot() map[string]streamState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]streamState, len(t.streams))
	for k, v := range t.streams {
		out[k] = v
	}
	return out
}

// pinger checks a backing service.
type pinger func(ctx context.Context) error

// createHealthHandler creates the HTTP handler for health checks and metrics.
func createHealthHandler(
	checks map[string]pinger,
	streams *streamTracker,
	gatherer prometheus.Gatherer,
	metricsPath string,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Version    string                 `json:"version"`
			Components map[string]interface{} `json:"components"`
			Streams    map[string]streamState `json:"streams"`
		}{
			Status:     "healthy",
			Version:    version.Version,
			Components: make(map[string]interface{}),
			Streams:    streams.snapshot(),
		}

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				health.Status = "unhealthy"
				health.Components[name] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components[name] = "connected"
			}
		}

		if health.Status == "healthy" {
			for _, s := range health.Streams {
				if s.State == streamFailed {
					health.Status = "degraded"
					break
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}
