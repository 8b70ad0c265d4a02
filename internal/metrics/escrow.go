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
	// EscrowTransitions tracks escrow state transitions by tier.
	EscrowTransitions = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "transitions_total",
			Help:      "Total number of escrow state transitions",
		},
		[]string{"tier", "to_state"},
	)

	// EscrowLockDuration tracks the lock duration granted at escrow
	// creation, by tier.
	EscrowLockDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "lock_duration_seconds",
			Help:      "Escrow lock duration in seconds at creation time",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12), // 1s to ~48.5 days
		},
		[]string{"tier"},
	)

	// EscrowClaimAmount tracks the worker payout amount at claim time.
	EscrowClaimAmount = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "claim_amount_xmr",
			Help:      "Worker payout amount in XMR at claim time",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 12),
		},
		[]string{"tier"},
	)

	// EscrowDisputes tracks disputes opened.
	EscrowDisputes = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "escrow",
			Name:      "disputes_total",
			Help:      "Total number of escrow disputes opened",
		},
	)
)
