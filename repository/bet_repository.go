package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pointmarket/database"
	"pointmarket/models"
)

const betColumns = `id, user_id, market_id, side, amount, fee, created_at`

// BetRepository implements the service.BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

// newBetRepositoryWithTx creates a new bet repository with a transaction
func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

func scanBet(row pgx.Row) (*models.Bet, error) {
	var bet models.Bet
	err := row.Scan(
		&bet.ID,
		&bet.UserID,
		&bet.MarketID,
		&bet.Side,
		&bet.Amount,
		&bet.Fee,
		&bet.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bet: %w", err)
	}
	return &bet, nil
}

// Create inserts a new bet row. The primary key constraint aborts the
// transaction on a concurrent duplicate insert.
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (id, user_id, market_id, side, amount, fee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.ID,
		bet.UserID,
		bet.MarketID,
		bet.Side,
		bet.Amount,
		bet.Fee,
	).Scan(&bet.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create bet %s: %w", bet.ID, err)
	}

	return nil
}

// Exists reports whether a bet with the given identity already exists
func (r *BetRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM bets WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check bet existence: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a bet by its ID
func (r *BetRepository) GetByID(ctx context.Context, id string) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`
	return scanBet(r.q.QueryRow(ctx, query, id))
}

// Delete removes a bet row entirely. Returns ErrBetNotFound if the row is
// already gone, so a racing double withdrawal fails cleanly.
func (r *BetRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM bets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bet %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete bet %s: %w", id, models.ErrBetNotFound)
	}
	return nil
}

// ListByMarket returns all live bets on a market
func (r *BetRepository) ListByMarket(ctx context.Context, marketID int64) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE market_id = $1 ORDER BY created_at`

	rows, err := r.q.Query(ctx, query, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}

// ListByUser returns all live bets for a user, newest first
func (r *BetRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bets for user %d: %w", userID, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}
