package service

import (
	"context"
	"fmt"
	"time"

	"pointmarket/config"
	"pointmarket/events"
	"pointmarket/models"
)

type marketService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewMarketService creates a new market service
func NewMarketService(uowFactory UnitOfWorkFactory, cfg *config.Config) MarketService {
	return &marketService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// CreateMarket opens a new market. The flat creation fee is deducted from the
// creator's balance atomically with the insert; seed liquidity is recorded on
// the pools but is not traceable to any bet.
func (s *marketService) CreateMarket(ctx context.Context, creatorID int64, question string, closesAt time.Time, seedYes, seedNo int64) (*models.Market, error) {
	if question == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}
	if !closesAt.After(time.Now()) {
		return nil, fmt.Errorf("close time must be in the future")
	}
	if seedYes < 0 || seedNo < 0 {
		return nil, fmt.Errorf("seed liquidity cannot be negative")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	creator, err := uow.UserRepository().GetByID(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	if creator == nil {
		return nil, models.ErrUserNotFound
	}

	creationFee := s.cfg.CreationFee
	if creator.Balance < creationFee {
		return nil, fmt.Errorf("creation fee is %d, have %d: %w", creationFee, creator.Balance, models.ErrInsufficientFunds)
	}

	market := &models.Market{
		CreatorID: creatorID,
		Question:  question,
		Status:    models.MarketStatusOpen,
		YesPool:   seedYes,
		NoPool:    seedNo,
		ClosesAt:  closesAt,
	}
	if err := uow.MarketRepository().Create(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to create market: %w", err)
	}

	if creationFee > 0 {
		if err := uow.UserRepository().DeductBalance(ctx, creatorID, creationFee); err != nil {
			return nil, fmt.Errorf("failed to charge creation fee: %w", err)
		}

		history := &models.BalanceHistory{
			UserID:          creatorID,
			BalanceBefore:   creator.Balance,
			BalanceAfter:    creator.Balance - creationFee,
			ChangeAmount:    -creationFee,
			TransactionType: models.TransactionTypeMarketCreate,
			TransactionMetadata: map[string]any{
				"question": question,
			},
			MarketID: &market.ID,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, fmt.Errorf("failed to record creation fee: %w", err)
		}
	}

	if err := uow.UserRepository().IncrementMarketsCreated(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("failed to update creator stats: %w", err)
	}

	uow.EventBus().Publish(events.MarketCreatedEvent{
		MarketID:  market.ID,
		CreatorID: creatorID,
		Question:  question,
		YesPool:   seedYes,
		NoPool:    seedNo,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return market, nil
}

// GetMarketDetail returns a market with its live bets and current odds
func (s *marketService) GetMarketDetail(ctx context.Context, marketID int64) (*models.MarketDetail, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, models.ErrMarketNotFound
	}

	bets, err := uow.BetRepository().ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list market bets: %w", err)
	}

	yesPct, noPct := models.Odds(market.YesPool, market.NoPool)

	return &models.MarketDetail{
		Market: market,
		Bets:   bets,
		YesPct: yesPct,
		NoPct:  noPct,
	}, nil
}

// ListMarkets returns all markets in the given status
func (s *marketService) ListMarkets(ctx context.Context, status models.MarketStatus) ([]*models.Market, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	markets, err := uow.MarketRepository().ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets: %w", err)
	}

	return markets, nil
}
