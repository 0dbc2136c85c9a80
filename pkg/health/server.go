package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the aggregate readiness of every registered Checker at
// /healthz, plus the Prometheus handler at /metrics, on a dedicated
// control-plane address separate from the ingest listener.
type Server struct {
	mu       sync.Mutex
	checkers []Checker
	statuses map[string]*Status
	cfg      Config

	httpServer *http.Server
}

// NewServer builds a Server bound to addr. checkers are polled fresh on
// every /healthz request; there is no background poll loop, so a request
// never reports staler than the instant it was made.
func NewServer(addr string, cfg Config, checkers ...Checker) *Server {
	s := &Server{
		checkers: checkers,
		statuses: make(map[string]*Status, len(checkers)),
		cfg:      cfg,
	}
	for _, c := range checkers {
		s.statuses[c.Name()] = NewStatus()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

type healthzReport struct {
	Healthy bool                 `json:"healthy"`
	Checks  map[string]checkView `json:"checks"`
}

type checkView struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report := healthzReport{Healthy: true, Checks: make(map[string]checkView, len(s.checkers))}

	s.mu.Lock()
	for _, c := range s.checkers {
		result := c.Check(ctx)
		status := s.statuses[c.Name()]
		status.Update(result, s.cfg)
		report.Checks[c.Name()] = checkView{Healthy: status.Healthy, Message: result.Message}
		if !status.Healthy {
			report.Healthy = false
		}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !report.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
