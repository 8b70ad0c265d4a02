package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rird-project/rird/pkg/record"
)

// MemoryStore is an in-memory Store, modeled on the teacher's in-memory
// session/nonce/DID store: a map guarded by a single RWMutex plus
// secondary indexes for the query patterns spec C3 requires.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record.Record
	byType  map[record.Type][]string
	byAgent map[string][]string
}

// NewMemoryStore returns an empty in-memory activity log, suitable for
// tests and single-process dev mode.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*record.Record),
		byType:  make(map[record.Type][]string),
		byAgent: make(map[string][]string),
	}
}

func (s *MemoryStore) Insert(_ context.Context, r *record.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; exists {
		return false, nil
	}

	cp := *r
	s.records[r.ID] = &cp
	s.byType[r.Type] = append(s.byType[r.Type], r.ID)
	s.byAgent[r.Agent] = append(s.byAgent[r.Agent], r.ID)
	return true, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) QueryByType(_ context.Context, typ record.Type, limit int) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byType[typ], limit), nil
}

func (s *MemoryStore) QueryByAgent(_ context.Context, agent string, limit int) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(s.byAgent[agent], limit), nil
}

func (s *MemoryStore) QueryByTypeAndAgent(_ context.Context, typ record.Type, agent string, limit int) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byAgent[agent]
	var out []*record.Record
	for _, id := range ids {
		r := s.records[id]
		if r != nil && r.Type == typ {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortDesc(out)
	return applyLimit(out, limit), nil
}

func (s *MemoryStore) QueryByTimeRange(_ context.Context, start, end time.Time, limit int) ([]*record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*record.Record
	startUnix, endUnix := start.Unix(), end.Unix()
	for _, r := range s.records {
		if r.TS >= startUnix && r.TS <= endUnix {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortDesc(out)
	return applyLimit(out, limit), nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) collect(ids []string, limit int) []*record.Record {
	out := make([]*record.Record, 0, len(ids))
	for _, id := range ids {
		if r := s.records[id]; r != nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortDesc(out)
	return applyLimit(out, limit)
}

func sortDesc(records []*record.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].TS > records[j].TS
	})
}

func applyLimit(records []*record.Record, limit int) []*record.Record {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
