package models

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Callers distinguish expected failures (not found,
// invalid state, insufficient funds) from infrastructure ones with errors.Is.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrMarketNotFound = errors.New("market not found")
	ErrBetNotFound    = errors.New("bet not found")

	ErrInvalidState = errors.New("invalid market state")

	// ErrMarketClosed is returned when a market no longer accepts bets or
	// withdrawals, whether closed explicitly or past its close time.
	ErrMarketClosed = fmt.Errorf("market is closed: %w", ErrInvalidState)

	// ErrMarketTerminal is returned when resolving a market that already
	// reached a terminal state.
	ErrMarketTerminal = fmt.Errorf("market already resolved or cancelled: %w", ErrInvalidState)

	ErrInsufficientFunds = errors.New("insufficient balance")

	// ErrIdentityConflict is returned when bet identity generation exhausts
	// its collision retries.
	ErrIdentityConflict = errors.New("bet identity conflict")

	// ErrInvariantViolation is returned when an operation would drive a
	// balance negative. Pools are floor-clamped instead; balances never are.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)
