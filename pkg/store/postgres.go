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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rird-project/rird/pkg/record"
)

// PostgresConfig holds connection parameters for the activity log backend.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgresStore implements Store against a PostgreSQL activity_records
// table (spec §6 persistent layout), with indexes on type, agent, ts, and
// (type, agent).
type PostgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS activity_records (
	id          TEXT PRIMARY KEY,
	v           INTEGER NOT NULL,
	agent       TEXT NOT NULL,
	type        TEXT NOT NULL,
	data        JSONB NOT NULL,
	ts          BIGINT NOT NULL,
	sig         BYTEA NOT NULL,
	refs        JSONB NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_activity_records_type ON activity_records (type);
CREATE INDEX IF NOT EXISTS idx_activity_records_agent ON activity_records (agent);
CREATE INDEX IF NOT EXISTS idx_activity_records_ts ON activity_records (ts);
CREATE INDEX IF NOT EXISTS idx_activity_records_type_agent ON activity_records (type, agent);
`

// NewPostgresStore connects to PostgreSQL and ensures the activity_records
// table and its indexes exist.
func NewPostgresStore(ctx context.Context, cfg *PostgresConfig) (*PostgresStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
	return newPostgresStore(ctx, connString)
}

// NewPostgresStoreFromDSN is NewPostgresStore for callers that already hold
// a single connection-string DSN (e.g. the node config's store.dsn field)
// rather than discrete host/port/user fields.
func NewPostgresStoreFromDSN(ctx context.Context, dsn string) (*PostgresStore, error) {
	return newPostgresStore(ctx, dsn)
}

func newPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, r *record.Record) (bool, error) {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return false, fmt.Errorf("store: marshal data: %w", err)
	}
	refs, err := json.Marshal(r.Refs)
	if err != nil {
		return false, fmt.Errorf("store: marshal refs: %w", err)
	}

	var insertedID string
	err = s.pool.QueryRow(ctx, `
		INSERT INTO activity_records (id, v, agent, type, data, ts, sig, refs)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`, r.ID, r.V, r.Agent, string(r.Type), data, r.TS, r.Sig, refs).Scan(&insertedID)
	if err == pgx.ErrNoRows {
		return false, nil // id already present: idempotent no-op
	}
	if err != nil {
		return false, fmt.Errorf("store: insert: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*record.Record, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, v, agent, type, data, ts, sig, refs
		FROM activity_records WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (s *PostgresStore) QueryByType(ctx context.Context, typ record.Type, limit int) ([]*record.Record, error) {
	return s.query(ctx, `
		SELECT id, v, agent, type, data, ts, sig, refs
		FROM activity_records WHERE type = $1
		ORDER BY ts DESC LIMIT $2
	`, string(typ), normalizeLimit(limit))
}

func (s *PostgresStore) QueryByAgent(ctx context.Context, agent string, limit int) ([]*record.Record, error) {
	return s.query(ctx, `
		SELECT id, v, agent, type, data, ts, sig, refs
		FROM activity_records WHERE agent = $1
		ORDER BY ts DESC LIMIT $2
	`, agent, normalizeLimit(limit))
}

func (s *PostgresStore) QueryByTypeAndAgent(ctx context.Context, typ record.Type, agent string, limit int) ([]*record.Record, error) {
	return s.query(ctx, `
		SELECT id, v, agent, type, data, ts, sig, refs
		FROM activity_records WHERE type = $1 AND agent = $2
		ORDER BY ts DESC LIMIT $3
	`, string(typ), agent, normalizeLimit(limit))
}

func (s *PostgresStore) QueryByTimeRange(ctx context.Context, start, end time.Time, limit int) ([]*record.Record, error) {
	return s.query(ctx, `
		SELECT id, v, agent, type, data, ts, sig, refs
		FROM activity_records WHERE ts >= $1 AND ts <= $2
		ORDER BY ts DESC LIMIT $3
	`, start.Unix(), end.Unix(), normalizeLimit(limit))
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM activity_records`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 1000
	}
	return limit
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...interface{}) ([]*record.Record, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		r, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row pgx.Row) (*record.Record, error) {
	return scanRecordRow(row)
}

func scanRecordRow(row rowScanner) (*record.Record, error) {
	var (
		r        record.Record
		typ      string
		dataJSON []byte
		refsJSON []byte
	)

	err := row.Scan(&r.ID, &r.V, &r.Agent, &typ, &dataJSON, &r.TS, &r.Sig, &refsJSON)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan: %w", err)
	}
	r.Type = record.Type(typ)

	if err := json.Unmarshal(dataJSON, &r.Data); err != nil {
		return nil, fmt.Errorf("store: unmarshal data: %w", err)
	}
	if err := json.Unmarshal(refsJSON, &r.Refs); err != nil {
		return nil, fmt.Errorf("store: unmarshal refs: %w", err)
	}
	return &r, nil
}
