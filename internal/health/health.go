package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/dashkit/admin-dashboard/internal/database"
)

type CheckResult struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type funcChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewChecker(name string, fn func(ctx context.Context) error) Checker {
	return funcChecker{name: name, fn: fn}
}

func (c funcChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	res := CheckResult{Name: c.name, Healthy: true}
	if err := c.fn(ctx); err != nil {
		res.Healthy = false
		res.Error = err.Error()
	}
	res.DurationMS = time.Since(start).Milliseconds()
	return res
}

func NewDBChecker(db *gorm.DB) Checker {
	return NewChecker("db", func(ctx context.Context) error { return database.Ping(ctx, db) })
}

func NewRedisChecker(client redis.UniversalClient) Checker {
	return NewChecker("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })
}

// ProbeRunner runs every checker concurrently under one timeout.
type ProbeRunner struct {
	timeout  time.Duration
	checkers []Checker
}

func NewProbeRunner(timeout time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, checkers: checkers}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	var g errgroup.Group
	for i, c := range p.checkers {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, r := range results {
		if !r.Healthy {
			ready = false
		}
	}
	return ready, results
}
