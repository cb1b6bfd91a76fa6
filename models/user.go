package models

import (
	"time"
)

// User represents an account holding a points balance, keyed by wallet address
type User struct {
	ID             int64     `db:"id"`
	WalletAddress  string    `db:"wallet_address"`
	Balance        int64     `db:"balance"`
	TotalBets      int64     `db:"total_bets"`
	TotalWagered   int64     `db:"total_wagered"`
	MarketsCreated int64     `db:"markets_created"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
