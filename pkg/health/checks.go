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
	"errors"

	"github.com/rird-project/rird/pkg/governance"
	"github.com/rird-project/rird/pkg/store"
)

// Well-known check names used by the readiness probe to single out the
// checks that must pass before a node accepts gossip and marketplace
// traffic.
const (
	CheckNameStore      = "store"
	CheckNameKillswitch = "killswitch"
)

// StoreHealthCheck wraps a connectivity probe against the activity log
// store. pingFn is typically store.Store's Count method, called with the
// check's bounded context; any error it returns marks the check unhealthy.
func StoreHealthCheck(pingFn func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if pingFn == nil {
			return errors.New("store: not configured")
		}
		return pingFn(ctx)
	}
}

// NewStorePingCheck builds a StoreHealthCheck bound to s, probing
// connectivity with a Count call.
func NewStorePingCheck(s store.Store) CheckFunc {
	return StoreHealthCheck(func(ctx context.Context) error {
		_, err := s.Count(ctx)
		return err
	})
}

// KillswitchHealthCheck reports unhealthy once ks has fired, so liveness
// and readiness probes surface an emergency shutdown immediately instead
// of waiting for process exit.
func KillswitchHealthCheck(ks *governance.Killswitch) CheckFunc {
	return func(ctx context.Context) error {
		if ks == nil {
			return nil
		}
		if ks.Fired() {
			return errors.New("killswitch: fired, node is shutting down")
		}
		return nil
	}
}

// KeyStoreHealthCheck wraps a check that the node's signing identity is
// loadable, e.g. identity.Load against the configured key path.
func KeyStoreHealthCheck(fn func() error) CheckFunc {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() { done <- fn() }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DatabaseHealthCheck wraps an arbitrary context-aware connectivity probe,
// e.g. a postgres store backend's ping.
func DatabaseHealthCheck(fn func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		return fn(ctx)
	}
}

// ServiceHealthCheck wraps a probe against an external HTTP service
// reachable at url.
func ServiceHealthCheck(url string, fn func(ctx context.Context, url string) error) CheckFunc {
	return func(ctx context.Context) error {
		return fn(ctx, url)
	}
}
