// Package reputation computes a local, from-attestations reputation
// score for an agent (spec C10). It is a pure function over the
// attestation set the caller supplies (itself a projection of the
// persistent log) plus a blacklist override, rather than a stateful
// component — the scoring formula has no need for injected clocks or
// mutexes beyond what its inputs already carry.
package reputation

import (
	"math"
	"time"
)

// Attestation is one reputation.attestation record targeting an agent.
type Attestation struct {
	Self          bool // true if the attestor is also the target (excluded)
	At            time.Time
	Quality       float64 // 0-5
	Speed         float64
	Communication float64
}

// TaskOutcome is one task the target agent was assigned, used for the
// completion-rate component.
type TaskOutcome struct {
	Assigned  bool
	Completed bool
}

// Score is the computed reputation for one agent.
type Score struct {
	Overall        float64
	CompletionRate float64
	AvgRating      float64
	VolumeFactor   float64
	RecencyFactor  float64
	Disabled       bool
}

// attestationWindow bounds how many of the most recent attestations are
// considered (spec §4.10: "limit window of most recent 1000").
const attestationWindow = 1000

// recencyWeight returns the weighting applied to an attestation based on
// its age (spec §4.10).
func recencyWeight(age time.Duration) float64 {
	switch {
	case age <= 30*24*time.Hour:
		return 1.0
	case age <= 90*24*time.Hour:
		return 0.5
	default:
		return 0.25
	}
}

// Compute derives a Score for a target agent from its recent attestations
// and task outcomes, as of now. Self-attestations are ignored. If
// blacklisted is true, the score is forced to Disabled regardless of
// inputs.
func Compute(attestations []Attestation, outcomes []TaskOutcome, now time.Time, blacklisted bool) Score {
	if blacklisted {
		return Score{Disabled: true}
	}

	filtered := excludeSelfAttestations(attestations)
	if len(filtered) > attestationWindow {
		filtered = filtered[len(filtered)-attestationWindow:]
	}

	completionRate := completionRateOf(outcomes)
	avgRating, latestAt := weightedAverageRating(filtered, now)
	volumeFactor := math.Min(math.Log10(float64(countAssigned(outcomes))+1)/3, 1.0)
	recencyFactor := recencyFactorSince(latestAt, now)

	overall := 5*(0.3*completionRate+0.2*volumeFactor+0.2*recencyFactor) + 0.3*avgRating

	return Score{
		Overall:        overall,
		CompletionRate: completionRate,
		AvgRating:      avgRating,
		VolumeFactor:   volumeFactor,
		RecencyFactor:  recencyFactor,
	}
}

func excludeSelfAttestations(attestations []Attestation) []Attestation {
	var out []Attestation
	for _, a := range attestations {
		if !a.Self {
			out = append(out, a)
		}
	}
	return out
}

func completionRateOf(outcomes []TaskOutcome) float64 {
	assigned := 0
	completed := 0
	for _, o := range outcomes {
		if o.Assigned {
			assigned++
			if o.Completed {
				completed++
			}
		}
	}
	if assigned == 0 {
		return 0
	}
	return float64(completed) / float64(assigned)
}

func countAssigned(outcomes []TaskOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Assigned {
			n++
		}
	}
	return n
}

// weightedAverageRating averages the per-dimension ratings (quality,
// speed, communication) across attestations, each weighted by recency,
// and returns the timestamp of the most recent attestation alongside it.
func weightedAverageRating(attestations []Attestation, now time.Time) (avg float64, latest time.Time) {
	if len(attestations) == 0 {
		return 0, time.Time{}
	}

	var weightedSum, weightTotal float64
	for _, a := range attestations {
		w := recencyWeight(now.Sub(a.At))
		dimensionAvg := (a.Quality + a.Speed + a.Communication) / 3
		weightedSum += w * dimensionAvg
		weightTotal += w
		if a.At.After(latest) {
			latest = a.At
		}
	}
	if weightTotal == 0 {
		return 0, latest
	}
	return weightedSum / weightTotal, latest
}

func recencyFactorSince(latest time.Time, now time.Time) float64 {
	if latest.IsZero() {
		return 0
	}
	daysSince := now.Sub(latest).Hours() / 24
	factor := 1 - daysSince/90
	return math.Max(factor, 0)
}
