// Package api exposes the read-only HTTP interface over the event store.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/endou0310-byte/rindo/internal/classify"
	"github.com/endou0310-byte/rindo/internal/event"
	"github.com/endou0310-byte/rindo/internal/normalize"
)

// Server serves events from an in-memory store loaded at startup.
type Server struct {
	router chi.Router
	events *event.Store
	logger *zap.Logger
}

// NewServer wires routes over the store.
func NewServer(events *event.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{events: events, logger: logger}

	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/events", s.listEvents)
		r.Get("/events/{id}", s.getEvent)
		r.Get("/roads/{name}", s.getRoad)
	})
	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event store not loaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// listEvents handles GET /v1/events?status=&pref=.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	statusParam := strings.TrimSpace(r.URL.Query().Get("status"))
	if statusParam != "" && !classify.Status(statusParam).Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+statusParam)
		return
	}
	prefParam := strings.TrimSpace(r.URL.Query().Get("pref"))

	all := s.events.Events()
	out := make([]event.Canonical, 0, len(all))
	for _, ev := range all {
		if statusParam != "" && string(ev.Status) != statusParam {
			continue
		}
		if prefParam != "" && ev.Pref != prefParam {
			continue
		}
		out = append(out, ev)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"updated": s.events.Updated(),
		"count":   len(out),
		"events":  out,
	})
}

// getEvent handles GET /v1/events/{id}.
func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ev, ok := s.events.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no event "+id)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// getRoad handles GET /v1/roads/{name}: a name-only lookup that normalizes
// the path segment and returns the highest-severity record for that road.
// With no agency in the query this can mis-attribute shared names; the
// response carries the source so callers can verify.
func (s *Server) getRoad(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "name")
	norm := normalize.Name(raw)
	if norm == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	ev, ok := s.events.BestForName(norm)
	if !ok {
		writeError(w, http.StatusNotFound, "no record for "+raw)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"norm_name": norm,
		"event":     ev,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
