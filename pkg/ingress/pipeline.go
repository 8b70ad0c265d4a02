// Package ingress implements the 8-step record admission pipeline (spec
// C4): shape check, dedup, clock-drift check, signature verification,
// rate limiting, governance blocking, persistence, and dispatch. It is
// the single entry point for records arriving from gossip, a direct
// peer stream, or the local control plane.
package ingress

import (
	"context"
	"sync"
	"time"

	"github.com/rird-project/rird/pkg/record"
	"github.com/rird-project/rird/pkg/store"
)

// Outcome tags the single structured result of processing one record.
type Outcome string

const (
	OutcomeAccepted          Outcome = "accepted"
	OutcomeRejectedShape     Outcome = "rejected_shape"
	OutcomeDuplicate         Outcome = "duplicate"
	OutcomeRejectedDrift     Outcome = "rejected_drift"
	OutcomeRejectedSignature Outcome = "rejected_signature"
	OutcomeRateLimited       Outcome = "rate_limited"
	OutcomeBlocked           Outcome = "blocked"
)

// Result is returned by Ingest for every record, accepted or not.
type Result struct {
	Outcome    Outcome
	RetryAfter time.Duration // set when Outcome == OutcomeRateLimited
}

// RateLimiter is the capability checked in step 5 (flagging.RateLimiter
// satisfies this).
type RateLimiter interface {
	CheckMessage(agent string, typ record.Type) (allowed bool, retryAfter time.Duration)
}

// Blocklist is the capability checked in step 6 (governance.Registry
// satisfies this).
type Blocklist interface {
	IsBlocked(agent string) bool
}

// Handler receives every accepted record of one type (or every accepted
// record, for a wildcard handler). Handlers never block the caller for
// long; expensive work should be handed off internally.
type Handler func(r *record.Record)

// Clock abstracts time.Now so the drift check is deterministic in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default, wall-clock-backed Clock.
var SystemClock Clock = systemClock{}

// Counters is the pipeline's observability surface (spec C4:
// "processed, accepted, rejected, duplicates, invalid-signature,
// timestamp-drift").
type Counters struct {
	mu               sync.Mutex
	Processed        int64
	Accepted         int64
	Rejected         int64
	Duplicates       int64
	InvalidSignature int64
	TimestampDrift   int64
}

func (c *Counters) incr(field *int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field++
}

// Snapshot returns a copy of the counters, safe to read concurrently.
func (c *Counters) Snapshot() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counters{
		Processed:        c.Processed,
		Accepted:         c.Accepted,
		Rejected:         c.Rejected,
		Duplicates:       c.Duplicates,
		InvalidSignature: c.InvalidSignature,
		TimestampDrift:   c.TimestampDrift,
	}
}

// Pipeline is the C4 ingress pipeline: dependency-injected store, rate
// limiter, blocklist, and clock, with a typed-plus-wildcard dispatch
// table (spec §9: "typed dispatch map from record-type tag to a list of
// subscriber channels... wildcard subscribers form a separate dedicated
// channel").
type Pipeline struct {
	mu          sync.RWMutex
	store       store.Store
	rateLimiter RateLimiter
	blocklist   Blocklist
	clock       Clock
	handlers    map[record.Type][]Handler
	wildcard    []Handler
	counters    Counters
}

// New constructs a Pipeline using the system clock.
func New(st store.Store, rateLimiter RateLimiter, blocklist Blocklist) *Pipeline {
	return NewWithClock(SystemClock, st, rateLimiter, blocklist)
}

// NewWithClock is New parameterized by Clock.
func NewWithClock(clock Clock, st store.Store, rateLimiter RateLimiter, blocklist Blocklist) *Pipeline {
	return &Pipeline{
		store:       st,
		rateLimiter: rateLimiter,
		blocklist:   blocklist,
		clock:       clock,
		handlers:    make(map[record.Type][]Handler),
	}
}

// On registers a handler invoked for every accepted record of type typ.
func (p *Pipeline) On(typ record.Type, h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[typ] = append(p.handlers[typ], h)
}

// OnAny registers a wildcard handler invoked for every accepted record
// regardless of type.
func (p *Pipeline) OnAny(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wildcard = append(p.wildcard, h)
}

// Counters returns a live snapshot of the pipeline's observability
// counters.
func (p *Pipeline) Counters() Counters {
	return p.counters.Snapshot()
}

// IngestContext runs r through the full 8-step admission pipeline (spec
// C4). Rejections at any step stop processing immediately and cause no
// downstream mutation — the pipeline-safety invariant from spec §8.
func (p *Pipeline) IngestContext(ctx context.Context, r *record.Record) Result {
	p.counters.incr(&p.counters.Processed)

	if result, ok := p.checkShape(r); !ok {
		return result
	}

	existing, err := p.store.Get(ctx, r.ID)
	if err == nil && existing != nil {
		p.counters.incr(&p.counters.Duplicates)
		return Result{Outcome: OutcomeDuplicate}
	}

	now := p.clock.Now()
	if abs(now.Unix()-r.TS) > int64(record.MaxClockDrift.Seconds()) {
		p.counters.incr(&p.counters.TimestampDrift)
		p.counters.incr(&p.counters.Rejected)
		return Result{Outcome: OutcomeRejectedDrift}
	}

	if r.Type.IsPublic() {
		if !record.VerifyAt(r, now) {
			p.counters.incr(&p.counters.InvalidSignature)
			p.counters.incr(&p.counters.Rejected)
			return Result{Outcome: OutcomeRejectedSignature}
		}
	}

	if p.rateLimiter != nil {
		if allowed, retryAfter := p.rateLimiter.CheckMessage(r.Agent, r.Type); !allowed {
			return Result{Outcome: OutcomeRateLimited, RetryAfter: retryAfter}
		}
	}

	if p.blocklist != nil && p.blocklist.IsBlocked(r.Agent) {
		return Result{Outcome: OutcomeBlocked}
	}

	if _, err := p.store.Insert(ctx, r); err != nil {
		p.counters.incr(&p.counters.Rejected)
		return Result{Outcome: OutcomeRejectedShape}
	}

	p.counters.incr(&p.counters.Accepted)
	p.dispatch(r)
	return Result{Outcome: OutcomeAccepted}
}

// Ingest satisfies gossip.Ingress and the local RPC's injection points,
// which have no context of their own to thread through; it runs the same
// pipeline as IngestContext against context.Background().
func (p *Pipeline) Ingest(r *record.Record) error {
	p.IngestContext(context.Background(), r)
	return nil
}

func (p *Pipeline) checkShape(r *record.Record) (Result, bool) {
	if r == nil || r.V != record.Version || r.Agent == "" || r.Type == "" || r.ID == "" || len(r.Sig) == 0 {
		p.counters.incr(&p.counters.Rejected)
		return Result{Outcome: OutcomeRejectedShape}, false
	}
	if !r.Type.IsKnown() {
		p.counters.incr(&p.counters.Rejected)
		return Result{Outcome: OutcomeRejectedShape}, false
	}
	return Result{}, true
}

func (p *Pipeline) dispatch(r *record.Record) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, h := range p.handlers[r.Type] {
		h(r)
	}
	for _, h := range p.wildcard {
		h(r)
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
