// Package healthcheck reports the health of the service and the stores it
// depends on for liveness and readiness probes
package healthcheck

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check represents a health check
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
	Metadata    interface{}   `json:"metadata,omitempty"`
}

// Response represents the health check response
type Response struct {
	Status        Status        `json:"status"`
	Version       string        `json:"version"`
	Timestamp     time.Time     `json:"timestamp"`
	Checks        []Check       `json:"checks"`
	TotalDuration time.Duration `json:"total_duration_ms"`
}

// Checker defines the interface for health checks
type Checker interface {
	Check(ctx context.Context) Check
}

// HealthCheck aggregates dependency checks into one cached report
type HealthCheck struct {
	version string
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	checkers map[string]Checker
	cacheTTL time.Duration
	cache    *Response

	// refresh collapses probes that arrive while the cache is stale
	refresh singleflight.Group
}

// New creates a new health check instance
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		logger:   logger,
		timeout:  10 * time.Second,
		checkers: make(map[string]Checker),
		cacheTTL: 5 * time.Second,
	}
}

// Register adds checker under name, replacing any checker already there
func (h *HealthCheck) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
	h.cache = nil
}

// SetCacheTTL sets how long a report is served before the checks run again
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// Handler serves the full report. Only an unhealthy service answers 503.
func (h *HealthCheck) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := h.Check(c.Request.Context())
		c.JSON(statusCode(report.Status), report)
	}
}

// LivenessHandler answers as long as the process can serve requests
func (h *HealthCheck) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "alive",
			"version":   h.version,
			"timestamp": time.Now().UTC(),
		})
	}
}

// ReadinessHandler reports whether the service should receive traffic. A
// degraded dependency such as the diff cache does not take it out of rotation.
func (h *HealthCheck) ReadinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report := h.Check(c.Request.Context())
		if report.Status != StatusUnhealthy {
			c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": report.Timestamp})
			return
		}

		failing := report.Failing()
		h.logger.Warn("Not ready", zap.Strings("failing", failing))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not_ready",
			"failing": failing,
			"checks":  report.Checks,
		})
	}
}

// Check returns the current report, running every checker when the cached
// one has expired
func (h *HealthCheck) Check(ctx context.Context) Response {
	if report, ok := h.cached(); ok {
		return report
	}
	v, _, _ := h.refresh.Do("report", func() (interface{}, error) {
		return h.run(ctx), nil
	})
	return v.(Response)
}

func (h *HealthCheck) cached() (Response, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cache == nil || time.Since(h.cache.Timestamp) >= h.cacheTTL {
		return Response{}, false
	}
	return *h.cache, true
}

func (h *HealthCheck) run(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = h.checkers[name]
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	checks := make([]Check, len(checkers))
	var g errgroup.Group
	for i := range checkers {
		g.Go(func() error {
			checks[i] = runChecker(ctx, names[i], checkers[i])
			return nil
		})
	}
	_ = g.Wait()

	report := Response{
		Status:        worst(checks),
		Version:       h.version,
		Timestamp:     start,
		Checks:        checks,
		TotalDuration: time.Since(start),
	}

	h.mu.Lock()
	h.cache = &report
	h.mu.Unlock()
	return report
}

// runChecker names the result and turns a panicking checker into an
// unhealthy result
func runChecker(ctx context.Context, name string, checker Checker) (check Check) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			check = Check{
				Status:      StatusUnhealthy,
				Message:     fmt.Sprintf("check panicked: %v", r),
				LastChecked: start,
				Duration:    time.Since(start),
			}
		}
		check.Name = name
	}()
	return checker.Check(ctx)
}

var severity = map[Status]int{
	StatusHealthy:   0,
	StatusDegraded:  1,
	StatusUnhealthy: 2,
}

func worst(checks []Check) Status {
	status := StatusHealthy
	for _, c := range checks {
		if severity[c.Status] > severity[status] {
			status = c.Status
		}
	}
	return status
}

func statusCode(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Failing lists the names of unhealthy checks
func (r Response) Failing() []string {
	var names []string
	for _, c := range r.Checks {
		if c.Status == StatusUnhealthy {
			names = append(names, c.Name)
		}
	}
	return names
}

// DatabaseChecker checks database health
type DatabaseChecker struct {
	db *sql.DB
}

// NewDatabaseChecker creates a new database checker
func NewDatabaseChecker(db *sql.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

// Check performs database health check
func (d *DatabaseChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Name:        "database",
		LastChecked: start,
	}

	err := d.db.PingContext(ctx)
	check.Duration = time.Since(start)

	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
		return check
	}

	stats := d.db.Stats()
	check.Status = StatusHealthy
	check.Metadata = map[string]interface{}{
		"open_connections": stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"max_open":         stats.MaxOpenConnections,
		"wait_count":       stats.WaitCount,
	}

	// A saturated pool still answers but queues callers
	if stats.MaxOpenConnections > 1 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
		if utilization > 90 {
			check.Status = StatusDegraded
			check.Message = "High connection pool utilization"
		}
	}

	return check
}

// Pinger is anything that can report its own reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports a dependency as degraded when it cannot be pinged.
// It is meant for dependencies the service can run without, such as the
// diff cache.
type PingChecker struct {
	target   Pinger
	critical bool
}

// NewPingChecker creates a checker for target. A failing critical target
// is unhealthy rather than degraded.
func NewPingChecker(target Pinger, critical bool) *PingChecker {
	return &PingChecker{target: target, critical: critical}
}

// Check pings the target
func (p *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := p.target.Ping(ctx)
	check := Check{
		Status:      StatusHealthy,
		LastChecked: start,
		Duration:    time.Since(start),
	}
	if err != nil {
		check.Status = StatusDegraded
		if p.critical {
			check.Status = StatusUnhealthy
		}
		check.Message = err.Error()
	}
	return check
}

// CustomChecker allows for custom health check logic
type CustomChecker struct {
	name  string
	check func(ctx context.Context) (Status, string, interface{})
}

// NewCustomChecker creates a new custom checker
func NewCustomChecker(name string, check func(ctx context.Context) (Status, string, interface{})) *CustomChecker {
	return &CustomChecker{
		name:  name,
		check: check,
	}
}

// Check performs custom health check
func (c *CustomChecker) Check(ctx context.Context) Check {
	start := time.Now()

	status, message, metadata := c.check(ctx)

	return Check{
		Name:        c.name,
		Status:      status,
		Message:     message,
		Metadata:    metadata,
		LastChecked: start,
		Duration:    time.Since(start),
	}
}

// MarshalJSON customizes JSON marshaling for duration
func (c Check) MarshalJSON() ([]byte, error) {
	type Alias Check
	return json.Marshal(&struct {
		Duration float64 `json:"duration_ms"`
		*Alias
	}{
		Duration: float64(c.Duration.Milliseconds()),
		Alias:    (*Alias)(&c),
	})
}

// MarshalJSON customizes JSON marshaling for response
func (r Response) MarshalJSON() ([]byte, error) {
	type Alias Response
	return json.Marshal(&struct {
		TotalDuration float64 `json:"total_duration_ms"`
		*Alias
	}{
		TotalDuration: float64(r.TotalDuration.Milliseconds()),
		Alias:         (*Alias)(&r),
	})
}
