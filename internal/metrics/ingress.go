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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngressProcessed tracks every record the admission pipeline saw,
	// tagged by its final outcome (accepted, rejected_shape, duplicate, ...).
	IngressProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "processed_total",
			Help:      "Total number of records passed through the admission pipeline",
		},
		[]string{"outcome", "record_type"},
	)

	// IngressPipelineDuration tracks how long the 8-step admission
	// pipeline takes end to end.
	IngressPipelineDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "pipeline_duration_seconds",
			Help:      "Admission pipeline duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14), // 50Âµs to 400ms
		},
	)

	// GossipSeenCacheSize tracks the current size of the gossip adapter's
	// dedup cache.
	GossipSeenCacheSize = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "seen_cache_size",
			Help:      "Number of record ids currently tracked by the gossip dedup cache",
		},
	)

	// GossipBroadcastFailures tracks transport-level broadcast failures.
	GossipBroadcastFailures = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "broadcast_failures_total",
			Help:      "Total number of gossip broadcast failures",
		},
	)

	// GossipDuplicatesDropped tracks records dropped as duplicates at the
	// gossip layer, before they reach the ingress pipeline's own dedup step.
	GossipDuplicatesDropped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "duplicates_dropped_total",
			Help:      "Total number of gossip messages dropped as duplicates",
		},
	)

	// GossipDeserializeErrors tracks malformed gossip payloads.
	GossipDeserializeErrors = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gossip",
			Name:      "deserialize_errors_total",
			Help:      "Total number of gossip messages that failed to deserialize",
		},
	)
)
