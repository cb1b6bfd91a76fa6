package service

import (
	"context"
	"fmt"
	"time"

	"pointmarket/config"
	"pointmarket/events"
	"pointmarket/models"
)

type resolutionService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewResolutionService creates a new resolution service
func NewResolutionService(uowFactory UnitOfWorkFactory, cfg *config.Config) ResolutionService {
	return &resolutionService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// IsResolver checks if a wallet is authorized to resolve markets
func (s *resolutionService) IsResolver(walletAddress string) bool {
	for _, resolver := range s.cfg.ResolverWallets {
		if walletAddress == resolver {
			return true
		}
	}
	return false
}

// ResolveMarket transitions a market to a terminal state and settles every
// bet on it in a single transaction. The pool snapshot and the status flip
// happen inside the same transaction, so a reader never observes a terminal
// market with partially applied payouts, and a bet racing the resolution
// cannot land after the snapshot.
func (s *resolutionService) ResolveMarket(ctx context.Context, marketID int64, resolution models.Resolution, resolverWallet string) (*models.ResolutionResult, error) {
	if !s.IsResolver(resolverWallet) {
		return nil, fmt.Errorf("wallet %s is not authorized to resolve markets", resolverWallet)
	}
	if resolution != models.ResolutionYes && resolution != models.ResolutionNo && resolution != models.ResolutionCancelled {
		return nil, fmt.Errorf("invalid resolution: %s", resolution)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	market, err := uow.MarketRepository().GetByIDForUpdate(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market: %w", err)
	}
	if market == nil {
		return nil, models.ErrMarketNotFound
	}
	if market.IsTerminal() {
		return nil, models.ErrMarketTerminal
	}

	bets, err := uow.BetRepository().ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list market bets: %w", err)
	}

	var winners, losers int
	var totalPayout int64

	if resolution == models.ResolutionCancelled {
		totalPayout, err = s.refundAll(ctx, uow, market, bets)
		if err != nil {
			return nil, err
		}
	} else {
		winners, losers, totalPayout, err = s.payOutWinners(ctx, uow, market, bets, resolution)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if resolution == models.ResolutionCancelled {
		market.Status = models.MarketStatusCancelled
	} else {
		market.Status = models.MarketStatusResolved
	}
	market.Resolution = &resolution
	market.ResolvedAt = &now

	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update resolved market: %w", err)
	}

	uow.EventBus().Publish(events.MarketResolvedEvent{
		MarketID:    marketID,
		Resolution:  resolution,
		Winners:     winners,
		Losers:      losers,
		TotalPayout: totalPayout,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.ResolutionResult{
		Market:      market,
		Winners:     winners,
		Losers:      losers,
		TotalPayout: totalPayout,
	}, nil
}

// refundAll reverses the full original debit for every bet on a cancelled
// market, fee included. Pool totals are left untouched; the market is being
// retired.
func (s *resolutionService) refundAll(ctx context.Context, uow UnitOfWork, market *models.Market, bets []*models.Bet) (int64, error) {
	var totalRefunded int64

	for _, bet := range bets {
		refund := bet.Amount + bet.Fee

		user, err := uow.UserRepository().GetByID(ctx, bet.UserID)
		if err != nil {
			return 0, fmt.Errorf("failed to get bettor %d: %w", bet.UserID, err)
		}
		if user == nil {
			return 0, fmt.Errorf("bettor %d: %w", bet.UserID, models.ErrUserNotFound)
		}

		if err := uow.UserRepository().AddBalance(ctx, bet.UserID, refund); err != nil {
			return 0, fmt.Errorf("failed to refund bettor %d: %w", bet.UserID, err)
		}

		history := &models.BalanceHistory{
			UserID:          bet.UserID,
			BalanceBefore:   user.Balance,
			BalanceAfter:    user.Balance + refund,
			ChangeAmount:    refund,
			TransactionType: models.TransactionTypeBetRefund,
			TransactionMetadata: map[string]any{
				"bet_amount": bet.Amount,
				"fee":        bet.Fee,
			},
			MarketID: &market.ID,
			BetID:    &bet.ID,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return 0, fmt.Errorf("failed to record refund: %w", err)
		}

		totalRefunded += refund
	}

	return totalRefunded, nil
}

// payOutWinners credits every bet on the winning side its stake plus a
// proportional share of the losing pool. Pool totals are snapshotted once
// from the locked market row, not recomputed per bet.
func (s *resolutionService) payOutWinners(ctx context.Context, uow UnitOfWork, market *models.Market, bets []*models.Bet, resolution models.Resolution) (winners, losers int, totalPayout int64, err error) {
	winningSide := models.BetSideYes
	if resolution == models.ResolutionNo {
		winningSide = models.BetSideNo
	}

	winningPool, losingPool := market.YesPool, market.NoPool
	if winningSide == models.BetSideNo {
		winningPool, losingPool = market.NoPool, market.YesPool
	}

	for _, bet := range bets {
		if bet.Side != winningSide {
			losers++
			continue
		}
		if winningPool == 0 {
			// No stake is tracked on the winning side; nothing to divide
			continue
		}

		payout := bet.Amount + (bet.Amount*losingPool)/winningPool

		user, err := uow.UserRepository().GetByID(ctx, bet.UserID)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("failed to get winner %d: %w", bet.UserID, err)
		}
		if user == nil {
			return 0, 0, 0, fmt.Errorf("winner %d: %w", bet.UserID, models.ErrUserNotFound)
		}

		if err := uow.UserRepository().AddBalance(ctx, bet.UserID, payout); err != nil {
			return 0, 0, 0, fmt.Errorf("failed to credit winner %d: %w", bet.UserID, err)
		}

		history := &models.BalanceHistory{
			UserID:          bet.UserID,
			BalanceBefore:   user.Balance,
			BalanceAfter:    user.Balance + payout,
			ChangeAmount:    payout,
			TransactionType: models.TransactionTypeBetPayout,
			TransactionMetadata: map[string]any{
				"bet_amount":   bet.Amount,
				"side":         bet.Side,
				"winning_pool": winningPool,
				"losing_pool":  losingPool,
			},
			MarketID: &market.ID,
			BetID:    &bet.ID,
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return 0, 0, 0, fmt.Errorf("failed to record payout: %w", err)
		}

		winners++
		totalPayout += payout
	}

	return winners, losers, totalPayout, nil
}
