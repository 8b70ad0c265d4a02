package gossip

import (
	"github.com/rird-project/rird/pkg/record"
)

// Ingress is the capability the adapter injects deserialized records into
// (spec C4). The lifecycle/ingress pipeline implements this; the adapter
// itself has no knowledge of validation, storage, or dispatch.
type Ingress interface {
	Ingest(r *record.Record) error
}

// Metrics receives adapter-level observability counters (spec §10
// ambient stack). Components not using metrics pass a no-op Metrics.
type Metrics interface {
	IncBroadcastFailure()
	IncDuplicateDropped()
	IncDeserializeError()
}

type noopMetrics struct{}

func (noopMetrics) IncBroadcastFailure() {}
func (noopMetrics) IncDuplicateDropped() {}
func (noopMetrics) IncDeserializeError() {}

// Adapter wires a Transport to an Ingress pipeline: it deserializes
// inbound broadcast bytes into records, drops ones already seen, and
// forwards the rest. Outbound, it serializes and broadcasts records this
// node originates.
type Adapter struct {
	transport Transport
	ingress   Ingress
	topic     string
	seen      *seenCache
	metrics   Metrics
}

// NewAdapter constructs an Adapter bound to topic (use DefaultTopic if the
// node has no override) using the system clock for seen-id expiry.
func NewAdapter(transport Transport, ingress Ingress, topic string, metrics Metrics) *Adapter {
	return NewAdapterWithClock(SystemClock, transport, ingress, topic, metrics)
}

// NewAdapterWithClock is NewAdapter parameterized by Clock, for
// deterministic seen-cache expiry in tests.
func NewAdapterWithClock(clock Clock, transport Transport, ingress Ingress, topic string, metrics Metrics) *Adapter {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	a := &Adapter{
		transport: transport,
		ingress:   ingress,
		topic:     topic,
		seen:      newSeenCache(clock),
		metrics:   metrics,
	}
	transport.OnMessage(a.handleMessage)
	return a
}

func (a *Adapter) handleMessage(topic string, data []byte) {
	if topic != a.topic {
		return
	}
	r, err := record.Deserialize(data)
	if err != nil {
		a.metrics.IncDeserializeError()
		return
	}
	if a.seen.observe(r.ID) {
		a.metrics.IncDuplicateDropped()
		return
	}
	// Ingest's own validation pipeline (shape, signature, dedup against
	// the persistent log) is the authority; the seen cache here is purely
	// a gossip-layer reprocessing guard, not a substitute for it.
	_ = a.ingress.Ingest(r)
}

// Publish serializes r and broadcasts it on the adapter's topic. A
// broadcast failure is logged once by the caller via Metrics and not
// retried, per the protocol's eventual-re-observation design (spec §7).
func (a *Adapter) Publish(r *record.Record) error {
	a.seen.observe(r.ID)
	data, err := record.Serialize(r)
	if err != nil {
		return err
	}
	if err := a.transport.Broadcast(a.topic, data); err != nil {
		a.metrics.IncBroadcastFailure()
		return err
	}
	return nil
}

// SeenCount reports how many distinct record ids are currently tracked by
// the seen-id cache (test/observability helper).
func (a *Adapter) SeenCount() int {
	return a.seen.len()
}
