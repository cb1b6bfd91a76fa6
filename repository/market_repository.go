package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pointmarket/database"
	"pointmarket/models"
)

const marketColumns = `id, creator_id, question, status, yes_pool, no_pool, resolution, closes_at, created_at, resolved_at`

// MarketRepository implements the service.MarketRepository interface
type MarketRepository struct {
	q queryable
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(db *database.DB) *MarketRepository {
	return &MarketRepository{q: db.Pool}
}

// newMarketRepositoryWithTx creates a new market repository with a transaction
func newMarketRepositoryWithTx(tx queryable) *MarketRepository {
	return &MarketRepository{q: tx}
}

func scanMarket(row pgx.Row) (*models.Market, error) {
	var market models.Market
	err := row.Scan(
		&market.ID,
		&market.CreatorID,
		&market.Question,
		&market.Status,
		&market.YesPool,
		&market.NoPool,
		&market.Resolution,
		&market.ClosesAt,
		&market.CreatedAt,
		&market.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan market: %w", err)
	}
	return &market, nil
}

// Create inserts a new market with its seed liquidity
func (r *MarketRepository) Create(ctx context.Context, market *models.Market) error {
	query := `
		INSERT INTO markets (creator_id, question, status, yes_pool, no_pool, closes_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		market.CreatorID,
		market.Question,
		market.Status,
		market.YesPool,
		market.NoPool,
		market.ClosesAt,
	).Scan(&market.ID, &market.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create market: %w", err)
	}

	return nil
}

// GetByID retrieves a market by its ID
func (r *MarketRepository) GetByID(ctx context.Context, id int64) (*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = $1`
	return scanMarket(r.q.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves a market and locks its row for the duration of
// the transaction. Every mutating engine operation takes this lock first so
// concurrent bets, withdrawals, and resolution on one market serialize.
func (r *MarketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = $1 FOR UPDATE`
	return scanMarket(r.q.QueryRow(ctx, query, id))
}

// Update persists a market's mutable fields (status, pools, resolution)
func (r *MarketRepository) Update(ctx context.Context, market *models.Market) error {
	query := `
		UPDATE markets
		SET status = $1, yes_pool = $2, no_pool = $3, resolution = $4, resolved_at = $5
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		market.Status,
		market.YesPool,
		market.NoPool,
		market.Resolution,
		market.ResolvedAt,
		market.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update market %d: %w", market.ID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("update market %d: %w", market.ID, models.ErrMarketNotFound)
	}

	return nil
}

// ListByStatus returns all markets in the given status, newest first
func (r *MarketRepository) ListByStatus(ctx context.Context, status models.MarketStatus) ([]*models.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE status = $1 ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets by status %s: %w", status, err)
	}
	defer rows.Close()

	var markets []*models.Market
	for rows.Next() {
		market, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, market)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate markets: %w", err)
	}

	return markets, nil
}
