// Package verifier implements the per-trust-tier verification policy
// (spec C9): Tier 1 auto-pass, Tier 2 self-verify, Tier 3 a three-vote
// quorum collected over direct streams with a bounded collection window.
package verifier

import (
	"context"
	"errors"
	"time"
)

// Decision is the outcome of verifying one task's delivered result.
type Decision struct {
	Passed bool
	Score  float64
	Reason string
}

// Tier mirrors escrow.Tier; duplicated here (rather than imported) to
// keep the verifier package free of a dependency on the escrow engine's
// internals — it only needs the tier number.
type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// SelfVerifier is the capability the local agent adapter exposes for
// Tier-2 self-verification (mirrors executor.Agent.Verify, kept as its
// own small interface to avoid an import cycle between executor and
// verifier).
type SelfVerifier interface {
	Verify(ctx context.Context, taskID string) (passed bool, score float64, reason string, err error)
}

// RemoteVote is one verifier's vote in a Tier-3 quorum, collected over a
// direct peer stream.
type RemoteVote struct {
	VerifierID string
	Passed     bool
	Score      float64
}

// ErrQuorumNotReached marks a Tier-3 verification whose collection window
// elapsed before enough votes arrived.
var ErrQuorumNotReached = errors.New("verifier: quorum not reached")

// VerifyTier1 always auto-passes with a perfect score (spec §4.9).
func VerifyTier1() Decision {
	return Decision{Passed: true, Score: 1.0}
}

// VerifyTier2 delegates to the local agent adapter's self-verification.
func VerifyTier2(ctx context.Context, sv SelfVerifier, taskID string) Decision {
	passed, score, reason, err := sv.Verify(ctx, taskID)
	if err != nil {
		return Decision{Passed: false, Score: 0, Reason: err.Error()}
	}
	return Decision{Passed: passed, Score: score, Reason: reason}
}

// VoteCollector gathers Tier-3 remote votes over direct streams within a
// bounded collection window.
type VoteCollector struct {
	window time.Duration
}

// NewVoteCollector constructs a VoteCollector with the given collection
// window.
func NewVoteCollector(window time.Duration) *VoteCollector {
	return &VoteCollector{window: window}
}

// Collect gathers self plus votes arriving on votesCh until quorum
// (self + 2 remote votes, 3 total) or the collection window elapses. On
// timeout it returns Decision{Passed:false, Reason:"quorum not reached"}.
// Otherwise it aggregates by majority (>=2/3) with score = mean of votes.
func (vc *VoteCollector) Collect(ctx context.Context, self RemoteVote, votesCh <-chan RemoteVote) Decision {
	votes := []RemoteVote{self}

	timer := time.NewTimer(vc.window)
	defer timer.Stop()

	for len(votes) < 3 {
		select {
		case v, ok := <-votesCh:
			if !ok {
				return Decision{Passed: false, Score: 0, Reason: ErrQuorumNotReached.Error()}
			}
			votes = append(votes, v)
		case <-timer.C:
			return Decision{Passed: false, Score: 0, Reason: ErrQuorumNotReached.Error()}
		case <-ctx.Done():
			return Decision{Passed: false, Score: 0, Reason: ErrQuorumNotReached.Error()}
		}
	}

	return aggregateVotes(votes)
}

func aggregateVotes(votes []RemoteVote) Decision {
	passCount := 0
	var scoreSum float64
	for _, v := range votes {
		if v.Passed {
			passCount++
		}
		scoreSum += v.Score
	}
	majority := passCount*3 >= 2*len(votes) // passCount/len >= 2/3
	return Decision{
		Passed: majority,
		Score:  scoreSum / float64(len(votes)),
	}
}
