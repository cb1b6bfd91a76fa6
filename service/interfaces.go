package service

import (
	"context"
	"time"

	"pointmarket/events"
	"pointmarket/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by its internal ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByWalletAddress retrieves a user by wallet address
	GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error)

	// Create creates a new user with the initial balance
	Create(ctx context.Context, walletAddress string, initialBalance int64) (*models.User, error)

	// AddBalance adds to a user's balance atomically
	AddBalance(ctx context.Context, userID int64, amount int64) error

	// DeductBalance deducts from a user's balance atomically, failing if insufficient funds
	DeductBalance(ctx context.Context, userID int64, amount int64) error

	// IncrementBetStats bumps total_bets and total_wagered after a placement
	IncrementBetStats(ctx context.Context, userID int64, wagered int64) error

	// DecrementBetStats reverses the counters after a withdrawal, floored at zero
	DecrementBetStats(ctx context.Context, userID int64, wagered int64) error

	// IncrementMarketsCreated bumps the markets_created counter
	IncrementMarketsCreated(ctx context.Context, userID int64) error
}

// MarketRepository defines the interface for market data access
type MarketRepository interface {
	// Create inserts a new market with its seed liquidity
	Create(ctx context.Context, market *models.Market) error

	// GetByID retrieves a market by its ID
	GetByID(ctx context.Context, id int64) (*models.Market, error)

	// GetByIDForUpdate retrieves a market and locks its row for the transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Market, error)

	// Update persists a market's mutable fields
	Update(ctx context.Context, market *models.Market) error

	// ListByStatus returns all markets in the given status
	ListByStatus(ctx context.Context, status models.MarketStatus) ([]*models.Market, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a new bet row
	Create(ctx context.Context, bet *models.Bet) error

	// Exists reports whether a bet with the given identity already exists
	Exists(ctx context.Context, id string) (bool, error)

	// GetByID retrieves a bet by its ID
	GetByID(ctx context.Context, id string) (*models.Bet, error)

	// Delete removes a bet row entirely
	Delete(ctx context.Context, id string) error

	// ListByMarket returns all live bets on a market
	ListByMarket(ctx context.Context, marketID int64) ([]*models.Bet, error)

	// ListByUser returns all live bets for a user
	ListByUser(ctx context.Context, userID int64) ([]*models.Bet, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns balance history for a specific user
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceHistory, error)
}

// UserService defines the interface for user operations
type UserService interface {
	// GetOrCreateUser retrieves an existing user or creates a new one with
	// the starting balance on first authentication
	GetOrCreateUser(ctx context.Context, walletAddress string) (*models.User, error)

	// GetUserBets returns a user's live bets
	GetUserBets(ctx context.Context, userID int64) ([]*models.Bet, error)
}

// MarketService defines the interface for market lifecycle operations
type MarketService interface {
	// CreateMarket opens a new market, charging the creator the creation fee
	CreateMarket(ctx context.Context, creatorID int64, question string, closesAt time.Time, seedYes, seedNo int64) (*models.Market, error)

	// GetMarketDetail returns a market with its live bets and current odds
	GetMarketDetail(ctx context.Context, marketID int64) (*models.MarketDetail, error)

	// ListMarkets returns all markets in the given status
	ListMarkets(ctx context.Context, status models.MarketStatus) ([]*models.Market, error)
}

// BettingService defines the interface for stake operations
type BettingService interface {
	// PlaceBet validates and atomically applies a stake to one side of a
	// market. feeRate is the effective fee fraction retained by the platform.
	PlaceBet(ctx context.Context, marketID, userID int64, side models.BetSide, amount int64, feeRate float64) (*models.BetReceipt, error)

	// WithdrawBet reverses a live bet's effect on balance and pool, applying
	// the early-exit penalty, and deletes the bet
	WithdrawBet(ctx context.Context, marketID, userID int64, betID string) (*models.WithdrawalReceipt, error)
}

// ResolutionService defines the interface for settlement operations
type ResolutionService interface {
	// ResolveMarket transitions a market to a terminal state and settles all
	// of its bets in one transaction
	ResolveMarket(ctx context.Context, marketID int64, resolution models.Resolution, resolverWallet string) (*models.ResolutionResult, error)

	// IsResolver checks if a wallet is authorized to resolve markets
	IsResolver(walletAddress string) bool
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	MarketRepository() MarketRepository
	BetRepository() BetRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
