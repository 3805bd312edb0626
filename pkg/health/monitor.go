package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents health check status
type Status int

const (
	StatusUnknown Status = iota
	StatusHealthy
	StatusUnhealthy
	StatusDegraded
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckFunc probes one dependency; a nil error means healthy
type CheckFunc func(ctx context.Context) error

// CheckResult is the latest outcome for one dependency
type CheckResult struct {
	Name         string        `json:"-"`
	Critical     bool          `json:"critical"`
	Status       Status        `json:"status"`
	Message      string        `json:"message,omitempty"`
	Latency      time.Duration `json:"latencyNs"`
	LastCheck    time.Time     `json:"lastCheck"`
	CheckCount   int           `json:"checkCount"`
	FailureCount int           `json:"failureCount"`
}

// Report aggregates every registered check. A failed critical check makes the
// whole report unhealthy, a failed optional one only degrades it.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type check struct {
	fn       CheckFunc
	critical bool
}

// Monitor runs dependency checks on demand and on an interval
type Monitor struct {
	mu       sync.RWMutex
	checks   map[string]check
	results  map[string]*CheckResult
	timeout  time.Duration
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewMonitor(interval, timeout time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Monitor{
		checks:   make(map[string]check),
		results:  make(map[string]*CheckResult),
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Register adds a named check, replacing any previous one with that name
func (m *Monitor) Register(name string, critical bool, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks[name] = check{fn: fn, critical: critical}
	m.logger.Debug("Registered health check",
		zap.String("name", name),
		zap.Bool("critical", critical),
	)
}

// Run checks periodically until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckAll(ctx)
		}
	}
}

// CheckAll probes every dependency concurrently and returns the fresh report
func (m *Monitor) CheckAll(ctx context.Context) Report {
	m.mu.RLock()
	checks := make(map[string]check, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for name, c := range checks {
		wg.Add(1)
		go func(name string, c check) {
			defer wg.Done()
			m.record(name, c, m.probe(ctx, c))
		}(name, c)
	}
	wg.Wait()

	return m.Report()
}

func (m *Monitor) probe(ctx context.Context, c check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := m.now()
	err := c.fn(ctx)
	result := CheckResult{
		Critical:  c.critical,
		Status:    StatusHealthy,
		Latency:   m.now().Sub(start),
		LastCheck: start,
	}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

func (m *Monitor) record(name string, c check, result CheckResult) {
	result.Name = name

	m.mu.Lock()
	if existing, ok := m.results[name]; ok {
		result.CheckCount = existing.CheckCount + 1
		result.FailureCount = existing.FailureCount
	} else {
		result.CheckCount = 1
	}
	if result.Status == StatusUnhealthy {
		result.FailureCount++
	}
	m.results[name] = &result
	m.mu.Unlock()

	if result.Status != StatusHealthy {
		m.logger.Warn("Health check failed",
			zap.String("name", name),
			zap.Bool("critical", c.critical),
			zap.Duration("latency", result.Latency),
			zap.String("error", result.Message),
		)
	}
}

// Report returns the latest results without probing
func (m *Monitor) Report() Report {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := Report{Status: StatusHealthy, Checks: make(map[string]CheckResult, len(m.results))}
	for name, result := range m.results {
		report.Checks[name] = *result
		if result.Status == StatusHealthy {
			continue
		}
		if result.Critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

// IsHealthy reports whether the named dependency passed its last check.
// Unknown names count as healthy.
func (m *Monitor) IsHealthy(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if result, ok := m.results[name]; ok {
		return result.Status == StatusHealthy
	}
	return true
}
