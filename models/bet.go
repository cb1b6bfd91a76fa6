package models

import "time"

// BetSide represents which outcome a bet backs
type BetSide string

const (
	BetSideYes BetSide = "yes"
	BetSideNo  BetSide = "no"
)

// Bet represents a live stake on one side of a market. A bet row exists if
// and only if its fee-adjusted stake is reflected in the market's pool and
// the user's debited balance; withdrawal removes the row entirely.
type Bet struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	MarketID  int64     `db:"market_id"`
	Side      BetSide   `db:"side"`
	Amount    int64     `db:"amount"`
	Fee       int64     `db:"fee"`
	CreatedAt time.Time `db:"created_at"`
}

// NetAmount returns the portion of the stake added to the pool (amount less fee)
func (b *Bet) NetAmount() int64 {
	return b.Amount - b.Fee
}

// BetReceipt represents the outcome of a bet placement (returned to the caller)
type BetReceipt struct {
	BetID      string
	Fee        int64
	NetAmount  int64
	NewBalance int64
	NewYesPool int64
	NewNoPool  int64
}

// WithdrawalReceipt represents the outcome of an early exit (returned to the caller)
type WithdrawalReceipt struct {
	RefundAmount   int64
	Penalty        int64
	PenaltyRatePct int
	NewBalance     int64
	NewYesPool     int64
	NewNoPool      int64
}

// ResolutionResult represents the outcome of a market resolution
type ResolutionResult struct {
	Market      *Market
	Winners     int
	Losers      int
	TotalPayout int64
}
