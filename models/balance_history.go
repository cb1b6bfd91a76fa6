package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial      TransactionType = "initial"
	TransactionTypeMarketCreate TransactionType = "market_create"
	TransactionTypeBetPlace     TransactionType = "bet_place"
	TransactionTypeBetWithdraw  TransactionType = "bet_withdraw"
	TransactionTypeBetPayout    TransactionType = "bet_payout"
	TransactionTypeBetRefund    TransactionType = "bet_refund"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	MarketID            *int64          `db:"market_id"`
	BetID               *string         `db:"bet_id"`
	CreatedAt           time.Time       `db:"created_at"`
}
