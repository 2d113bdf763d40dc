package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

// HealthChecker provides health check functionality. Database and Redis get
// dedicated checks with latency classification; other dependencies register
// named CheckFuncs.
type HealthChecker struct {
	db      *sql.DB
	redis   *redis.Client
	version string
	extra   map[string]CheckFunc
}

// NewHealthChecker creates a new health checker. db and redis may be nil for
// backends that do not use them.
func NewHealthChecker(db *sql.DB, redis *redis.Client, version string) *HealthChecker {
	return &HealthChecker{
		db:      db,
		redis:   redis,
		version: version,
		extra:   make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named dependency check
func (h *HealthChecker) RegisterCheck(name string, fn CheckFunc) {
	h.extra[name] = fn
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	// 503 only when unhealthy; degraded still serves traffic
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check performs a comprehensive health check
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		status.merge("database", h.checkDatabase(ctx))
	}
	if h.redis != nil {
		status.merge("redis", h.checkRedis(ctx))
	}
	for name, fn := range h.extra {
		status.merge(name, runCheck(ctx, fn))
	}

	return status
}

func (s *HealthStatus) merge(name string, dep DependencyStatus) {
	s.Dependencies[name] = dep
	switch dep.Status {
	case StatusUnhealthy:
		s.Status = StatusUnhealthy
	case StatusDegraded:
		if s.Status != StatusUnhealthy {
			s.Status = StatusDegraded
		}
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DependencyStatus {
	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	dep := DependencyStatus{
		Latency:   latency / time.Millisecond,
		Timestamp: time.Now(),
	}

	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
		return dep
	}

	// A slow ping degrades rather than fails the probe.
	if latency > time.Second {
		dep.Status = StatusDegraded
		dep.Message = "database responding slowly"
	} else {
		dep.Status = StatusHealthy
	}
	return dep
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	err := h.redis.Ping(ctx).Err()
	latency := time.Since(start)

	dep := DependencyStatus{
		Latency:   latency / time.Millisecond,
		Timestamp: time.Now(),
	}

	if err != nil {
		// Redis is a cache; losing it degrades the service but reads
		// still work against the database.
		dep.Status = StatusDegraded
		dep.Message = err.Error()
		return dep
	}

	dep.Status = StatusHealthy
	return dep
}

func runCheck(ctx context.Context, fn CheckFunc) DependencyStatus {
	start := time.Now()
	err := fn(ctx)

	dep := DependencyStatus{
		Latency:   time.Since(start) / time.Millisecond,
		Timestamp: time.Now(),
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	} else {
		dep.Status = StatusHealthy
	}
	return dep
}
