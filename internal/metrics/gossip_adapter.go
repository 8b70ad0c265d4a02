package metrics

// GossipMetrics satisfies gossip.Metrics by forwarding to the package's
// Prometheus collectors, so callers don't need to depend on this package's
// concrete collector types.
type GossipMetrics struct{}

func (GossipMetrics) IncBroadcastFailure() { GossipBroadcastFailures.Inc() }
func (GossipMetrics) IncDuplicateDropped() { GossipDuplicatesDropped.Inc() }
func (GossipMetrics) IncDeserializeError() { GossipDeserializeErrors.Inc() }
