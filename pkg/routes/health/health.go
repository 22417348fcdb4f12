package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency. A nil error is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	probe    CheckFunc
	critical bool
}

// Checker serves liveness, readiness and dependency health. Postgres is
// critical: the API cannot answer without it. Redis and the graph database
// only back cache invalidation and projection, so their failure degrades
// the service instead of taking it out of rotation.
type Checker struct {
	checks  map[string]check
	version string
	started time.Time
	timeout time.Duration
	ready   atomic.Bool
}

func NewChecker(version string) *Checker {
	return &Checker{
		checks:  make(map[string]check),
		version: version,
		started: time.Now(),
		timeout: 2 * time.Second,
	}
}

// AddCheck registers a critical dependency probe. Checks must be added
// before the routes serve traffic.
func (c *Checker) AddCheck(name string, probe CheckFunc) {
	c.checks[name] = check{probe: probe, critical: true}
}

// AddOptionalCheck registers a probe whose failure reports degraded.
func (c *Checker) AddOptionalCheck(name string, probe CheckFunc) {
	c.checks[name] = check{probe: probe}
}

// SetReady marks the service as started.
func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
}

type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

type CheckResult struct {
	Status   string `json:"status"`
	Critical bool   `json:"critical"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// probe runs every check concurrently, each under its own timeout.
func (c *Checker) probe(ctx context.Context) (string, map[string]*CheckResult) {
	var (
		mu      sync.Mutex
		results = make(map[string]*CheckResult, len(c.checks))
	)

	g, ctx := errgroup.WithContext(ctx)
	for name, chk := range c.checks {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			err := chk.probe(probeCtx)
			result := &CheckResult{Status: StatusHealthy, Critical: chk.critical, Latency: time.Since(start).String()}
			if err != nil {
				result.Status = StatusUnhealthy
				result.Message = err.Error()
			}

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	overall := StatusHealthy
	for _, result := range results {
		if result.Status == StatusHealthy {
			continue
		}
		if result.Critical {
			return StatusUnhealthy, results
		}
		overall = StatusDegraded
	}
	return overall, results
}

// Health reports every dependency. Only a failing critical check turns the
// response into a 503.
func (c *Checker) Health(ctx echo.Context) error {
	overall, results := c.probe(ctx.Request().Context())

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return ctx.JSON(code, &HealthStatus{
		Status:     overall,
		Version:    c.version,
		Uptime:     time.Since(c.started).Round(time.Second).String(),
		Checks:     results,
		ReportedAt: time.Now(),
	})
}

func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready is 200 once startup finished and every critical check passes.
func (c *Checker) Ready(ctx echo.Context) error {
	if !c.ready.Load() {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "starting"})
	}
	if overall, _ := c.probe(ctx.Request().Context()); overall == StatusUnhealthy {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": overall})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
