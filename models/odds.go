package models

import "math"

// Odds maps the two pool sizes to a displayed YES/NO probability pair,
// integers 0-100 summing to 100. The displayed probability of a side is
// derived from the opposite pool's share of total volume: a larger NO pool
// means YES bettors split a larger losing pool if correct, so displayed YES
// probability rises as the NO pool grows.
func Odds(yesPool, noPool int64) (yesPct, noPct int) {
	total := yesPool + noPool
	if total == 0 {
		return 50, 50
	}

	yesPct = int(math.Round(100 * float64(noPool) / float64(total)))
	noPct = int(math.Round(100 * float64(yesPool) / float64(total)))

	yesPct = clampPct(yesPct)
	noPct = clampPct(noPct)

	if yesPct == 0 && noPct == 0 {
		return 50, 50
	}

	// Integer rounding can leave the pair at 99 or 101
	if yesPct+noPct != 100 {
		noPct = 100 - yesPct
	}

	return yesPct, noPct
}

// SideProbability returns the implied probability of a side as a fraction,
// using the same inverted pool relationship as Odds. The total pool must be
// non-zero.
func SideProbability(side BetSide, yesPool, noPool int64) float64 {
	total := yesPool + noPool
	if side == BetSideYes {
		return float64(noPool) / float64(total)
	}
	return float64(yesPool) / float64(total)
}

func clampPct(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
