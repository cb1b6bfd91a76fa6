package models

import (
	"math"
	"time"
)

const (
	basePenaltyRate  = 0.10
	minPenaltyRate   = 0.05
	maxPenaltyRate   = 0.60
	lossPenaltyCap   = 0.50
	lossPenaltyScale = 0.30
	timeDecayWeight  = 0.20

	// The model does not track the probability observed at placement time;
	// every exit is priced against a flat 50% baseline. Known simplification,
	// load-bearing for the penalty economics.
	originalProbability = 0.5
)

// EarlyExitPenaltyRate prices the haircut for withdrawing a bet before
// resolution. The rate starts at 10%, scales up as the bet's side becomes
// less favored than the 50% baseline, is clamped to [5%, 60%], then gains a
// time-decay term proportional to how much of the bet's open lifetime has
// elapsed, with a final clamp to [0, 60%]. Pools must be non-zero.
func EarlyExitPenaltyRate(side BetSide, yesPool, noPool int64, betCreatedAt, closesAt, now time.Time) float64 {
	current := SideProbability(side, yesPool, noPool)

	rate := basePenaltyRate
	if current < originalProbability {
		loss := (originalProbability - current) / originalProbability
		rate = math.Min(basePenaltyRate+loss*lossPenaltyScale, lossPenaltyCap)
	}

	if rate < minPenaltyRate {
		rate = minPenaltyRate
	}
	if rate > maxPenaltyRate {
		rate = maxPenaltyRate
	}

	window := closesAt.Sub(betCreatedAt)
	if window > 0 {
		progress := 1 - closesAt.Sub(now).Seconds()/window.Seconds()
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
		rate += progress * timeDecayWeight
	}

	if rate < 0 {
		rate = 0
	}
	if rate > maxPenaltyRate {
		rate = maxPenaltyRate
	}

	return rate
}
