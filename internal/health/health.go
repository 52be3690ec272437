package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Pinger is anything with a cheap liveness probe: session stores, the executor.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is a named dependency probe.
type Check struct {
	Name   string
	Pinger Pinger
}

// CheckAll runs all checks concurrently and returns combined status.
// Result order follows the order of checks.
func CheckAll(ctx context.Context, checks ...Check) HealthStatus {
	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func(i int, c Check) {
			defer wg.Done()
			results[i] = run(ctx, c)
		}(i, c)
	}
	wg.Wait()

	allOK := true
	for _, r := range results {
		if !r.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    results,
		CheckedAt: time.Now().UTC(),
	}
}

func run(ctx context.Context, c Check) CheckResult {
	start := time.Now()
	result := CheckResult{Name: c.Name}
	if c.Pinger == nil {
		result.Error = "not configured"
		result.Latency = time.Since(start)
		return result
	}
	err := c.Pinger.Ping(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}
