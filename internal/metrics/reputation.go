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
	// ReputationComputations tracks how many times Score was recomputed
	// for an agent.
	ReputationComputations = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "computations_total",
			Help:      "Total number of reputation score recomputations",
		},
	)

	// ReputationComputationDuration tracks how long Compute takes.
	ReputationComputationDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "computation_duration_seconds",
			Help:      "Reputation score computation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15),
		},
	)

	// ReputationScore tracks the last computed overall score per agent.
	ReputationScore = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reputation",
			Name:      "overall_score",
			Help:      "Most recently computed overall reputation score",
		},
		[]string{"agent"},
	)

	// FlagsRaised tracks community flags raised, by whether they resulted
	// in an auto-hide.
	FlagsRaised = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "flagging",
			Name:      "raised_total",
			Help:      "Total number of community flags raised",
		},
		[]string{"auto_hidden"},
	)
)
