package models

import (
	"time"
)

// MarketStatus represents the lifecycle state of a market
type MarketStatus string

const (
	MarketStatusOpen      MarketStatus = "open"
	MarketStatusClosed    MarketStatus = "closed"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// Resolution represents the terminal outcome of a market
type Resolution string

const (
	ResolutionYes       Resolution = "yes"
	ResolutionNo        Resolution = "no"
	ResolutionCancelled Resolution = "cancelled"
)

// Market represents a binary-outcome prediction market with two stake pools
type Market struct {
	ID         int64        `db:"id"`
	CreatorID  int64        `db:"creator_id"`
	Question   string       `db:"question"`
	Status     MarketStatus `db:"status"`
	YesPool    int64        `db:"yes_pool"`
	NoPool     int64        `db:"no_pool"`
	Resolution *Resolution  `db:"resolution"`
	ClosesAt   time.Time    `db:"closes_at"`
	CreatedAt  time.Time    `db:"created_at"`
	ResolvedAt *time.Time   `db:"resolved_at"`
}

// IsOpen checks if the market is in the open state
func (m *Market) IsOpen() bool {
	return m.Status == MarketStatusOpen
}

// IsTerminal checks if the market has reached a terminal state
func (m *Market) IsTerminal() bool {
	return m.Status == MarketStatusResolved || m.Status == MarketStatusCancelled
}

// IsExpired checks if the market's close time has passed
func (m *Market) IsExpired() bool {
	return time.Now().After(m.ClosesAt)
}

// CanAcceptBets checks if new bets may be placed on the market
func (m *Market) CanAcceptBets() bool {
	return m.IsOpen() && !m.IsExpired()
}

// TotalPool returns the combined liquidity of both sides
func (m *Market) TotalPool() int64 {
	return m.YesPool + m.NoPool
}

// CanTransitionTo checks whether a status transition is legal.
// OPEN -> CLOSED, RESOLVED, CANCELLED; CLOSED -> RESOLVED, CANCELLED.
// Terminal states admit no transitions.
func (m *Market) CanTransitionTo(next MarketStatus) bool {
	switch m.Status {
	case MarketStatusOpen:
		return next == MarketStatusClosed || next == MarketStatusResolved || next == MarketStatusCancelled
	case MarketStatusClosed:
		return next == MarketStatusResolved || next == MarketStatusCancelled
	default:
		return false
	}
}

// MarketDetail combines a market with its live bets
type MarketDetail struct {
	Market *Market
	Bets   []*Bet
	YesPct int
	NoPct  int
}
