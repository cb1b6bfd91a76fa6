package service

import (
	"context"
	"fmt"

	"pointmarket/config"
	"pointmarket/events"
	"pointmarket/models"
)

type userService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
}

// NewUserService creates a new user service
func NewUserService(uowFactory UnitOfWorkFactory, cfg *config.Config) UserService {
	return &userService{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// GetOrCreateUser retrieves an existing user or creates a new one with the
// starting balance. The authentication layer has already verified the wallet;
// identity is trusted here.
func (s *userService) GetOrCreateUser(ctx context.Context, walletAddress string) (*models.User, error) {
	if walletAddress == "" {
		return nil, fmt.Errorf("wallet address cannot be empty")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByWalletAddress(ctx, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if user != nil {
		return user, nil
	}

	// First authentication; the unique constraint on wallet_address prevents
	// duplicate users under concurrent first calls
	startingBalance := s.cfg.StartingBalance
	user, err = uow.UserRepository().Create(ctx, walletAddress, startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	history := &models.BalanceHistory{
		UserID:          user.ID,
		BalanceBefore:   0,
		BalanceAfter:    startingBalance,
		ChangeAmount:    startingBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"wallet_address": walletAddress,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	uow.EventBus().Publish(events.UserCreatedEvent{
		UserID:         user.ID,
		WalletAddress:  walletAddress,
		InitialBalance: startingBalance,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// GetUserBets returns a user's live bets
func (s *userService) GetUserBets(ctx context.Context, userID int64) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user bets: %w", err)
	}

	return bets, nil
}
