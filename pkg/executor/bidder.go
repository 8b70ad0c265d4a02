// Package executor implements the bidder policy, counter-offer
// negotiation state machine, and the bounded-concurrency task executor
// (spec C8).
package executor

import (
	"math"
	"time"
)

// TaskPosting is the subset of a task.posted payload the bidder policy
// needs to decide whether and how to bid.
type TaskPosting struct {
	Budget       float64
	Requirements []string
	Deadline     time.Time
	Category     string
}

// AgentProfile describes the local agent's bidding posture (spec §4.8).
type AgentProfile struct {
	Capabilities   map[string]bool
	MaxConcurrent  int
	ActiveTasks    int
	MinPrice       float64
	Aggressiveness float64 // 0..1, higher bids more aggressively (lower price)
	Reputation     float64 // 0..5
}

// BidDecision is the bidder policy's output for one task.posted.
type BidDecision struct {
	ShouldBid        bool
	Price            float64
	EstimatedSeconds int
	Confidence       float64
	Reason           string
}

// Decide implements the bidder policy (spec §4.8): skip conditions (a)-(d),
// the price formula, estimated duration, and confidence.
func Decide(profile AgentProfile, posting TaskPosting, now time.Time) BidDecision {
	if profile.ActiveTasks >= profile.MaxConcurrent {
		return BidDecision{Reason: "active tasks at max_concurrent"}
	}

	matched := 0
	for _, req := range posting.Requirements {
		if profile.Capabilities[req] {
			matched++
		}
	}
	if matched < len(posting.Requirements) {
		return BidDecision{Reason: "missing required capability"}
	}

	if posting.Budget < profile.MinPrice {
		return BidDecision{Reason: "budget below minimum price"}
	}

	if posting.Deadline.Before(now.Add(60 * time.Second)) {
		return BidDecision{Reason: "deadline less than 60s out"}
	}

	base := posting.Budget * (1 - 0.3*profile.Aggressiveness)
	repFactor := 0.7 + 0.3*math.Min(profile.Reputation/5, 1.0)
	price := math.Max(base*repFactor, profile.MinPrice)

	estimatedSeconds := 300 * len(posting.Requirements)

	required := len(posting.Requirements)
	matchRatio := 0.0
	if required > 0 {
		matchRatio = float64(matched) / float64(required)
	}
	confidence := math.Min(0.5+0.4*(profile.Reputation/5)+0.1*matchRatio, 1.0)

	return BidDecision{
		ShouldBid:        true,
		Price:            price,
		EstimatedSeconds: estimatedSeconds,
		Confidence:       confidence,
		Reason:           "acceptable",
	}
}
