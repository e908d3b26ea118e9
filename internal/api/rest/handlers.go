package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fortuna/stathistory/internal/aggregate"
	"github.com/fortuna/stathistory/internal/config"
	"github.com/fortuna/stathistory/internal/history"
	"github.com/fortuna/stathistory/internal/mmolb"
	"github.com/fortuna/stathistory/internal/render"
	"github.com/fortuna/stathistory/internal/timeaxis"
)

// Builder computes histories.
type Builder interface {
	Build(ctx context.Context, cfg config.Config, reporter history.Reporter) (*history.History, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Handler contains dependencies for HTTP handlers
type Handler struct {
	base     config.Config
	builder  Builder
	renderer *render.Renderer
	checks   map[string]HealthCheck
}

// NewHandler creates a handler. base supplies every setting a request does
// not override.
func NewHandler(base config.Config, builder Builder, renderer *render.Renderer, checks map[string]HealthCheck) *Handler {
	return &Handler{base: base, builder: builder, renderer: renderer, checks: checks}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       overall,
		"service":      "stathistory",
		"dependencies": deps,
	})
}

// GetPlayerHistory charts one player's stats.
func (h *Handler) GetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	target := config.Target{Mode: config.ModePlayer, ID: mux.Vars(r)["playerID"]}
	h.serveHistory(w, r, target)
}

// GetTeamHistory charts one stat across a team's batters or pitchers.
func (h *Handler) GetTeamHistory(w http.ResponseWriter, r *http.Request) {
	mode := config.ModeBatters
	switch role := strings.ToLower(r.URL.Query().Get("role")); role {
	case "", "batters":
	case "pitchers":
		mode = config.ModePitchers
	default:
		respondError(w, http.StatusBadRequest, "Invalid role", fmt.Errorf("role %q (want batters or pitchers)", role))
		return
	}
	target := config.Target{Mode: mode, ID: mux.Vars(r)["teamID"]}
	h.serveHistory(w, r, target)
}

func (h *Handler) serveHistory(w http.ResponseWriter, r *http.Request, target config.Target) {
	cfg, err := fromQuery(h.base.With(target), r.URL.Query())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid query", err)
		return
	}

	hist, err := h.builder.Build(r.Context(), cfg, nil)
	if err != nil {
		respondError(w, statusFor(err), "Failed to build history", err)
		return
	}

	if cfg.Format == config.FormatJSON {
		respondJSON(w, http.StatusOK, hist)
		return
	}
	body, err := h.renderer.Render(r.Context(), hist, cfg.Format)
	if err != nil {
		respondError(w, statusFor(err), "Failed to render chart", err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(cfg.Format))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// fromQuery overlays request parameters onto cfg.
func fromQuery(cfg config.Config, q url.Values) (config.Config, error) {
	var err error
	if v := q.Get("start"); v != "" {
		if cfg.Start, err = timeaxis.Parse(v); err != nil {
			return cfg, fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
	}
	if v := q.Get("end"); v != "" {
		if cfg.End, err = timeaxis.Parse(v); err != nil {
			return cfg, fmt.Errorf("%w: %v", config.ErrInvalid, err)
		}
	}
	if v := q.Get("mode"); v != "" {
		cfg.Addressing = aggregate.Mode(strings.ToLower(v))
	}
	if v := q.Get("transport"); v != "" {
		cfg.Transport = config.Transport(strings.ToLower(v))
	}
	if v := q.Get("window"); v != "" {
		if cfg.Window, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("%w: window %q", config.ErrInvalid, v)
		}
	}
	if v := q.Get("smooth"); v != "" {
		if cfg.Smooth, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("%w: smooth %q", config.ErrInvalid, v)
		}
	}
	if v := q.Get("stats"); v != "" {
		cfg.SoloStats = strings.Split(v, ",")
	}
	if v := q.Get("stat"); v != "" {
		if cfg.Mode == config.ModePitchers {
			cfg.PitcherStat = strings.ToLower(v)
		} else {
			cfg.BatterStat = strings.ToLower(v)
		}
	}
	if v := q.Get("format"); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	return cfg, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, mmolb.ErrNotFound), errors.Is(err, history.ErrEmptyRoster):
		return http.StatusNotFound
	case errors.Is(err, render.ErrPNGUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, render.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
