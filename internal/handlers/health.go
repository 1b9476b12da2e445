package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rifqisaleh/shopsmart-rifqi/internal/platform/httpx"
)

const (
	healthStatusOK       = "ok"
	healthStatusDegraded = "degraded"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// ReadinessCheck probes one dependency. A nil error means ready.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build  BuildInfo
	clock  func() time.Time
	checks map[string]ReadinessCheck
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// NewHealthHandlers constructs probes with a build start time of now unless overridden.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:  time.Now,
		checks: map[string]ReadinessCheck{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

// WithHealthBuildInfo sets the version metadata reported by the probes.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock overrides the clock used for uptime.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithReadinessCheck registers a named dependency probe for /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name != "" && check != nil {
			h.checks[name] = check
		}
	}
}

// Healthz reports liveness.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.basePayload(healthStatusOK))
}

// Readyz runs every registered check and answers 503 when any fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := healthStatusOK
	results := make(map[string]any, len(names))
	for _, name := range names {
		if err := h.checks[name](r.Context()); err != nil {
			status = healthStatusDegraded
			results[name] = map[string]any{"status": "error", "error": err.Error()}
			continue
		}
		results[name] = map[string]any{"status": healthStatusOK}
	}

	payload := h.basePayload(status)
	payload["checks"] = results

	code := http.StatusOK
	if status != healthStatusOK {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, payload)
}

func (h *HealthHandlers) basePayload(status string) map[string]any {
	now := h.clock().UTC()
	payload := map[string]any{
		"status":    status,
		"uptime":    now.Sub(h.build.StartedAt).String(),
		"timestamp": now.Format(time.RFC3339),
	}
	if h.build.Version != "" {
		payload["version"] = h.build.Version
	}
	if h.build.CommitSHA != "" {
		payload["commitSha"] = h.build.CommitSHA
	}
	if h.build.Environment != "" {
		payload["environment"] = h.build.Environment
	}
	return payload
}
