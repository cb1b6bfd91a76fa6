package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"pointmarket/events"
	"pointmarket/models"
)

// maxIdentityAttempts bounds bet identity regeneration on collision
const maxIdentityAttempts = 10

type bettingService struct {
	uowFactory UnitOfWorkFactory
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory UnitOfWorkFactory) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
	}
}

// PlaceBet validates a stake request and atomically applies the
// balance/pool/bet mutation. The market row is locked for the transaction,
// so concurrent placements on one market serialize and pool increments are
// never lost. A stale-OPEN market past its close time is transitioned to
// CLOSED here as a side effect before the bet is rejected.
func (s *bettingService) PlaceBet(ctx context.Context, marketID, userID int64, side models.BetSide, amount int64, feeRate float64) (*models.BetReceipt, error) {
	if amount < 1 {
		return nil, fmt.Errorf("bet amount must be at least 1")
	}
	if side != models.BetSideYes && side != models.BetSideNo {
		return nil, fmt.Errorf("invalid bet side: %s", side)
	}
	if feeRate < 0 || feeRate >= 1 {
		return nil, fmt.Errorf("fee rate must be in [0, 1)")
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

	if !market.IsOpen() {
		return nil, models.ErrMarketClosed
	}

	if market.IsExpired() {
		// Lazy expiry self-heal: commit the OPEN -> CLOSED transition, then
		// reject the bet
		market.Status = models.MarketStatusClosed
		if err := uow.MarketRepository().Update(ctx, market); err != nil {
			return nil, fmt.Errorf("failed to close expired market: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit market close: %w", err)
		}
		return nil, models.ErrMarketClosed
	}

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	if user.Balance < amount {
		return nil, fmt.Errorf("have %d, need %d: %w", user.Balance, amount, models.ErrInsufficientFunds)
	}

	fee := int64(float64(amount) * feeRate)
	netAmount := amount - fee

	betID, err := s.generateBetID(ctx, uow)
	if err != nil {
		return nil, err
	}

	// The full gross amount leaves the balance; only the net amount enters
	// the pool. The fee is retained by the platform.
	if err := uow.UserRepository().DeductBalance(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to deduct stake: %w", err)
	}

	if side == models.BetSideYes {
		market.YesPool += netAmount
	} else {
		market.NoPool += netAmount
	}
	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market pools: %w", err)
	}

	bet := &models.Bet{
		ID:       betID,
		UserID:   userID,
		MarketID: marketID,
		Side:     side,
		Amount:   amount,
		Fee:      fee,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	if err := uow.UserRepository().IncrementBetStats(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to update bet stats: %w", err)
	}

	newBalance := user.Balance - amount
	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   user.Balance,
		BalanceAfter:    newBalance,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeBetPlace,
		TransactionMetadata: map[string]any{
			"side":       side,
			"amount":     amount,
			"fee":        fee,
			"net_amount": netAmount,
		},
		MarketID: &marketID,
		BetID:    &betID,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		BetID:      betID,
		UserID:     userID,
		MarketID:   marketID,
		Side:       side,
		Amount:     amount,
		Fee:        fee,
		NewBalance: newBalance,
		YesPool:    market.YesPool,
		NoPool:     market.NoPool,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.BetReceipt{
		BetID:      betID,
		Fee:        fee,
		NetAmount:  netAmount,
		NewBalance: newBalance,
		NewYesPool: market.YesPool,
		NewNoPool:  market.NoPool,
	}, nil
}

// generateBetID produces a collision-free bet identity. The existence check
// runs inside the placement transaction, and the primary key constraint
// aborts the transaction if a concurrent insert races the check.
func (s *bettingService) generateBetID(ctx context.Context, uow UnitOfWork) (string, error) {
	for attempt := 0; attempt < maxIdentityAttempts; attempt++ {
		candidate := uuid.NewString()
		exists, err := uow.BetRepository().Exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check bet identity: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("exhausted %d identity attempts: %w", maxIdentityAttempts, models.ErrIdentityConflict)
}

// WithdrawBet computes the early-exit penalty and atomically reverses a
// bet's effect on balance and pool, deleting the bet row. The side pool is
// decremented by the full gross stake (floored at zero) even though only the
// net amount was added at placement; the difference is the retained fee.
func (s *bettingService) WithdrawBet(ctx context.Context, marketID, userID int64, betID string) (*models.WithdrawalReceipt, error) {
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

	// Withdrawals require an open, unexpired market. An expired-but-OPEN
	// market is rejected without transitioning it; only bet placement is
	// authorized to lazy-close.
	if !market.IsOpen() || market.IsExpired() {
		return nil, models.ErrMarketClosed
	}

	bet, err := uow.BetRepository().GetByID(ctx, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	if bet == nil || bet.MarketID != marketID || bet.UserID != userID {
		return nil, models.ErrBetNotFound
	}

	if market.TotalPool() == 0 {
		return nil, fmt.Errorf("cannot price penalty on empty market: %w", models.ErrInvalidState)
	}

	rate := models.EarlyExitPenaltyRate(bet.Side, market.YesPool, market.NoPool, bet.CreatedAt, market.ClosesAt, time.Now())
	penalty := int64(float64(bet.Amount) * rate)
	refundAmount := bet.Amount - penalty

	if refundAmount > 0 {
		if err := uow.UserRepository().AddBalance(ctx, userID, refundAmount); err != nil {
			return nil, fmt.Errorf("failed to refund stake: %w", err)
		}
	}

	if err := uow.UserRepository().DecrementBetStats(ctx, userID, bet.Amount); err != nil {
		return nil, fmt.Errorf("failed to update bet stats: %w", err)
	}

	// Back out the full gross stake, floored at zero
	if bet.Side == models.BetSideYes {
		market.YesPool = max(market.YesPool-bet.Amount, 0)
	} else {
		market.NoPool = max(market.NoPool-bet.Amount, 0)
	}
	if err := uow.MarketRepository().Update(ctx, market); err != nil {
		return nil, fmt.Errorf("failed to update market pools: %w", err)
	}

	// A racing withdrawal of the same bet fails here, never double-refunds
	if err := uow.BetRepository().Delete(ctx, betID); err != nil {
		return nil, fmt.Errorf("failed to delete bet: %w", err)
	}

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	history := &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   user.Balance - refundAmount,
		BalanceAfter:    user.Balance,
		ChangeAmount:    refundAmount,
		TransactionType: models.TransactionTypeBetWithdraw,
		TransactionMetadata: map[string]any{
			"bet_amount":   bet.Amount,
			"penalty":      penalty,
			"penalty_rate": rate,
		},
		MarketID: &marketID,
		BetID:    &betID,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	uow.EventBus().Publish(events.BetWithdrawnEvent{
		BetID:        betID,
		UserID:       userID,
		MarketID:     marketID,
		RefundAmount: refundAmount,
		Penalty:      penalty,
		NewBalance:   user.Balance,
		YesPool:      market.YesPool,
		NoPool:       market.NoPool,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.WithdrawalReceipt{
		RefundAmount:   refundAmount,
		Penalty:        penalty,
		PenaltyRatePct: int(math.Round(rate * 100)),
		NewBalance:     user.Balance,
		NewYesPool:     market.YesPool,
		NewNoPool:      market.NoPool,
	}, nil
}
