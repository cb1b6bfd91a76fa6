package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pointmarket/database"
	"pointmarket/models"
)

const userColumns = `id, wallet_address, balance, total_bets, total_wagered, markets_created, created_at, updated_at`

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.WalletAddress,
		&user.Balance,
		&user.TotalBets,
		&user.TotalWagered,
		&user.MarketsCreated,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by its internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.q.QueryRow(ctx, query, id))
}

// GetByWalletAddress retrieves a user by wallet address
func (r *UserRepository) GetByWalletAddress(ctx context.Context, walletAddress string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`
	return scanUser(r.q.QueryRow(ctx, query, walletAddress))
}

// Create creates a new user with the initial balance
func (r *UserRepository) Create(ctx context.Context, walletAddress string, initialBalance int64) (*models.User, error) {
	query := `
		INSERT INTO users (wallet_address, balance)
		VALUES ($1, $2)
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query, walletAddress, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", walletAddress, err)
	}
	return user, nil
}

// AddBalance adds to a user's balance atomically
func (r *UserRepository) AddBalance(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to add balance for user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("add balance for user %d: %w", userID, models.ErrUserNotFound)
	}

	return nil
}

// DeductBalance deducts from a user's balance atomically, failing if the
// balance would go negative. Balances are never clamped.
func (r *UserRepository) DeductBalance(ctx context.Context, userID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, userID)
	if err != nil {
		return fmt.Errorf("failed to deduct balance for user %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		user, err := r.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("deduct balance for user %d: %w", userID, models.ErrUserNotFound)
		}
		return fmt.Errorf("have %d, need %d: %w", user.Balance, amount, models.ErrInsufficientFunds)
	}

	return nil
}

// IncrementBetStats bumps the denormalized bet counters after a placement
func (r *UserRepository) IncrementBetStats(ctx context.Context, userID int64, wagered int64) error {
	query := `
		UPDATE users
		SET total_bets = total_bets + 1,
		    total_wagered = total_wagered + $1,
		    updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, wagered, userID)
	if err != nil {
		return fmt.Errorf("failed to increment bet stats for user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("increment bet stats for user %d: %w", userID, models.ErrUserNotFound)
	}
	return nil
}

// DecrementBetStats reverses the bet counters after a withdrawal, floored at zero
func (r *UserRepository) DecrementBetStats(ctx context.Context, userID int64, wagered int64) error {
	query := `
		UPDATE users
		SET total_bets = GREATEST(total_bets - 1, 0),
		    total_wagered = GREATEST(total_wagered - $1, 0),
		    updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, wagered, userID)
	if err != nil {
		return fmt.Errorf("failed to decrement bet stats for user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("decrement bet stats for user %d: %w", userID, models.ErrUserNotFound)
	}
	return nil
}

// IncrementMarketsCreated bumps the markets_created counter
func (r *UserRepository) IncrementMarketsCreated(ctx context.Context, userID int64) error {
	query := `
		UPDATE users
		SET markets_created = markets_created + 1, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to increment markets created for user %d: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("increment markets created for user %d: %w", userID, models.ErrUserNotFound)
	}
	return nil
}
