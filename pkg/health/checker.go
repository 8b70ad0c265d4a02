// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CheckFunc performs one named health check, returning a non-nil error on
// failure. It should respect ctx's deadline.
type CheckFunc func(ctx context.Context) error

type cachedResult struct {
	result  Result
	expires time.Time
}

// HealthChecker is a registry of named checks, each run with a bounded
// timeout and memoized for a configurable TTL so that frequent probes (a
// kubernetes liveness probe every few seconds) don't re-run expensive
// checks on every request.
type HealthChecker struct {
	mu       sync.Mutex
	timeout  time.Duration
	cacheTTL time.Duration
	checks   map[string]CheckFunc
	cache    map[string]cachedResult
}

// NewHealthChecker returns a HealthChecker whose checks are each bounded by
// timeout. Caching is disabled until SetCacheTTL is called.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	return &HealthChecker{
		timeout: timeout,
		checks:  make(map[string]CheckFunc),
		cache:   make(map[string]cachedResult),
	}
}

// SetCacheTTL enables result caching: a check run within ttl of its
// previous run returns the memoized Result instead of re-running.
func (hc *HealthChecker) SetCacheTTL(ttl time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.cacheTTL = ttl
}

// ClearCache discards all memoized results.
func (hc *HealthChecker) ClearCache() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.cache = make(map[string]cachedResult)
}

// RegisterCheck adds or replaces the named check.
func (hc *HealthChecker) RegisterCheck(name string, fn CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = fn
	delete(hc.cache, name)
}

// UnregisterCheck removes the named check.
func (hc *HealthChecker) UnregisterCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
	delete(hc.cache, name)
}

// Check runs (or returns the cached Result for) the named check. It
// returns an error only if no check is registered under that name.
func (hc *HealthChecker) Check(ctx context.Context, name string) (Result, error) {
	hc.mu.Lock()
	fn, ok := hc.checks[name]
	if !ok {
		hc.mu.Unlock()
		return Result{}, fmt.Errorf("health check not found: %s", name)
	}
	if cached, ok := hc.cache[name]; ok && hc.cacheTTL > 0 && time.Now().Before(cached.expires) {
		hc.mu.Unlock()
		return cached.result, nil
	}
	ttl := hc.cacheTTL
	timeout := hc.timeout
	hc.mu.Unlock()

	result := hc.run(ctx, name, fn, timeout)

	if ttl > 0 {
		hc.mu.Lock()
		hc.cache[name] = cachedResult{result: result, expires: time.Now().Add(ttl)}
		hc.mu.Unlock()
	}
	return result, nil
}

func (hc *HealthChecker) run(ctx context.Context, name string, fn CheckFunc, timeout time.Duration) Result {
	checkCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		checkCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result := Result{Name: name, Status: StatusHealthy, CheckedAt: time.Now()}
	if err := fn(checkCtx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}
	return result
}

// CheckAll runs every registered check and returns their Results by name.
func (hc *HealthChecker) CheckAll(ctx context.Context) map[string]Result {
	hc.mu.Lock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	hc.mu.Unlock()

	results := make(map[string]Result, len(names))
	for _, name := range names {
		result, err := hc.Check(ctx, name)
		if err != nil {
			continue
		}
		results[name] = result
	}
	return results
}

// GetOverallStatus reports StatusUnhealthy if any registered check is
// unhealthy, else StatusHealthy. A checker with no registered checks is
// healthy.
func (hc *HealthChecker) GetOverallStatus(ctx context.Context) Status {
	for _, result := range hc.CheckAll(ctx) {
		if result.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}

// GetSystemHealth runs every registered check and returns the aggregate
// SystemHealthReport used by the /health HTTP endpoint.
func (hc *HealthChecker) GetSystemHealth(ctx context.Context) SystemHealthReport {
	checks := hc.CheckAll(ctx)
	status := StatusHealthy
	for _, result := range checks {
		if result.Status == StatusUnhealthy {
			status = StatusUnhealthy
			break
		}
		if result.Status == StatusDegraded && status == StatusHealthy {
			status = StatusDegraded
		}
	}
	return SystemHealthReport{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now(),
	}
}
