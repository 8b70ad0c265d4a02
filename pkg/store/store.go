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

// Package store defines the persistent, append-only activity log contract
// (spec C3) and its backends.
package store

import (
	"context"
	"time"

	"github.com/rird-project/rird/pkg/record"
)

// Store is the append-only, deduplicated, indexed log of activity records.
// Insert is idempotent on id; all query methods return results ordered by
// ts descending. Implementations must allow concurrent readers and writers.
type Store interface {
	// Insert stores r if its id is not already present. It reports whether
	// the record was newly inserted; a duplicate insert is silently
	// ignored and reports inserted=false with a nil error.
	Insert(ctx context.Context, r *record.Record) (inserted bool, err error)

	Get(ctx context.Context, id string) (*record.Record, error)
	QueryByType(ctx context.Context, typ record.Type, limit int) ([]*record.Record, error)
	QueryByAgent(ctx context.Context, agent string, limit int) ([]*record.Record, error)
	QueryByTimeRange(ctx context.Context, start, end time.Time, limit int) ([]*record.Record, error)
	QueryByTypeAndAgent(ctx context.Context, typ record.Type, agent string, limit int) ([]*record.Record, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}
