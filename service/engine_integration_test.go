package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmarket/config"
	"pointmarket/events"
	"pointmarket/models"
	"pointmarket/repository"
	"pointmarket/repository/testutil"
	"pointmarket/service"
)

func integrationConfig() *config.Config {
	return &config.Config{
		StartingBalance: 10000,
		MinimumStake:    50,
		PlacementFee:    0.01,
		CreationFee:     500,
		ResolverWallets: []string{"0xresolver"},
		Environment:     "test",
	}
}

func TestLedgerFlow_PlaceAndResolve_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	cfg := integrationConfig()

	factory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	userService := service.NewUserService(factory, cfg)
	marketService := service.NewMarketService(factory, cfg)
	bettingService := service.NewBettingService(factory)
	resolutionService := service.NewResolutionService(factory, cfg)

	alice, err := userService.GetOrCreateUser(ctx, "0xalice")
	require.NoError(t, err)
	bob, err := userService.GetOrCreateUser(ctx, "0xbob")
	require.NoError(t, err)
	creator, err := userService.GetOrCreateUser(ctx, "0xcreator")
	require.NoError(t, err)

	assert.Equal(t, int64(10000), alice.Balance)

	market, err := marketService.CreateMarket(ctx, creator.ID, "Will the feature ship?", time.Now().Add(24*time.Hour), 1000, 1000)
	require.NoError(t, err)

	// Creation fee left the creator's balance
	creator, err = userService.GetOrCreateUser(ctx, "0xcreator")
	require.NoError(t, err)
	assert.Equal(t, int64(9500), creator.Balance)

	aliceReceipt, err := bettingService.PlaceBet(ctx, market.ID, alice.ID, models.BetSideYes, 1000, cfg.PlacementFee)
	require.NoError(t, err)
	assert.Equal(t, int64(10), aliceReceipt.Fee)
	assert.Equal(t, int64(990), aliceReceipt.NetAmount)
	assert.Equal(t, int64(9000), aliceReceipt.NewBalance)
	assert.Equal(t, int64(1990), aliceReceipt.NewYesPool)

	bobReceipt, err := bettingService.PlaceBet(ctx, market.ID, bob.ID, models.BetSideNo, 500, cfg.PlacementFee)
	require.NoError(t, err)
	assert.Equal(t, int64(1495), bobReceipt.NewNoPool)

	// Displayed odds come from the opposite pool's share of volume
	detail, err := marketService.GetMarketDetail(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, 43, detail.YesPct)
	assert.Equal(t, 57, detail.NoPct)
	assert.Len(t, detail.Bets, 2)

	result, err := resolutionService.ResolveMarket(ctx, market.ID, models.ResolutionYes, "0xresolver")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Winners)
	assert.Equal(t, 1, result.Losers)
	// stake back plus floor(1000 * 1495 / 1990)
	assert.Equal(t, int64(1751), result.TotalPayout)

	alice, err = userService.GetOrCreateUser(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, int64(10751), alice.Balance)

	// Losing side keeps nothing
	bob, err = userService.GetOrCreateUser(ctx, "0xbob")
	require.NoError(t, err)
	assert.Equal(t, int64(9500), bob.Balance)

	// Settlement is terminal
	_, err = resolutionService.ResolveMarket(ctx, market.ID, models.ResolutionNo, "0xresolver")
	assert.ErrorIs(t, err, models.ErrMarketTerminal)

	// Settled markets accept no further stakes
	_, err = bettingService.PlaceBet(ctx, market.ID, bob.ID, models.BetSideNo, 100, cfg.PlacementFee)
	assert.ErrorIs(t, err, models.ErrMarketClosed)

	// Full audit trail for the winner: grant, placement, payout
	historyRepo := repository.NewBalanceHistoryRepository(testDB.DB)
	history, err := historyRepo.GetByUser(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.TransactionTypeBetPayout, history[0].TransactionType)
}

func TestLedgerFlow_Withdrawal_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	cfg := integrationConfig()

	factory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	userService := service.NewUserService(factory, cfg)
	marketService := service.NewMarketService(factory, cfg)
	bettingService := service.NewBettingService(factory)

	carol, err := userService.GetOrCreateUser(ctx, "0xcarol")
	require.NoError(t, err)
	creator, err := userService.GetOrCreateUser(ctx, "0xcreator")
	require.NoError(t, err)

	market, err := marketService.CreateMarket(ctx, creator.ID, "Withdrawal pricing", time.Now().Add(24*time.Hour), 1000, 1000)
	require.NoError(t, err)

	receipt, err := bettingService.PlaceBet(ctx, market.ID, carol.ID, models.BetSideYes, 1000, cfg.PlacementFee)
	require.NoError(t, err)

	withdrawal, err := bettingService.WithdrawBet(ctx, market.ID, carol.ID, receipt.BetID)
	require.NoError(t, err)

	// Carol's own stake tilted the market against her side, so the exit is
	// priced above the base rate: YES probability 1000/2990 against the flat
	// 50% baseline
	assert.Equal(t, int64(199), withdrawal.Penalty)
	assert.Equal(t, int64(801), withdrawal.RefundAmount)
	assert.Equal(t, 20, withdrawal.PenaltyRatePct)
	// The pool loses the gross stake, not the net contribution
	assert.Equal(t, int64(990), withdrawal.NewYesPool)

	carol, err = userService.GetOrCreateUser(ctx, "0xcarol")
	require.NoError(t, err)
	assert.Equal(t, int64(9801), carol.Balance)

	// The bet row is gone; a second withdrawal finds nothing
	_, err = bettingService.WithdrawBet(ctx, market.ID, carol.ID, receipt.BetID)
	assert.ErrorIs(t, err, models.ErrBetNotFound)
}

func TestLedgerFlow_Cancellation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	cfg := integrationConfig()

	factory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	userService := service.NewUserService(factory, cfg)
	marketService := service.NewMarketService(factory, cfg)
	bettingService := service.NewBettingService(factory)
	resolutionService := service.NewResolutionService(factory, cfg)

	dave, err := userService.GetOrCreateUser(ctx, "0xdave")
	require.NoError(t, err)
	creator, err := userService.GetOrCreateUser(ctx, "0xcreator")
	require.NoError(t, err)

	market, err := marketService.CreateMarket(ctx, creator.ID, "Cancelled market", time.Now().Add(24*time.Hour), 0, 0)
	require.NoError(t, err)

	_, err = bettingService.PlaceBet(ctx, market.ID, dave.ID, models.BetSideYes, 1000, cfg.PlacementFee)
	require.NoError(t, err)

	result, err := resolutionService.ResolveMarket(ctx, market.ID, models.ResolutionCancelled, "0xresolver")
	require.NoError(t, err)
	assert.Equal(t, models.MarketStatusCancelled, result.Market.Status)
	assert.Equal(t, int64(1010), result.TotalPayout)

	// Cancellation refunds the stake plus the fee on top of it
	dave, err = userService.GetOrCreateUser(ctx, "0xdave")
	require.NoError(t, err)
	assert.Equal(t, int64(10010), dave.Balance)
}

func TestLedgerFlow_ConcurrentPlacements_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	cfg := integrationConfig()

	factory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	userService := service.NewUserService(factory, cfg)
	marketService := service.NewMarketService(factory, cfg)
	bettingService := service.NewBettingService(factory)

	creator, err := userService.GetOrCreateUser(ctx, "0xcreator")
	require.NoError(t, err)

	market, err := marketService.CreateMarket(ctx, creator.ID, "Contended market", time.Now().Add(24*time.Hour), 1000, 1000)
	require.NoError(t, err)

	const bettors = 10
	userIDs := make([]int64, bettors)
	for i := range userIDs {
		user, err := userService.GetOrCreateUser(ctx, fmt.Sprintf("0xbettor%d", i))
		require.NoError(t, err)
		userIDs[i] = user.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, bettors)
	for i, userID := range userIDs {
		wg.Add(1)
		go func(i int, userID int64) {
			defer wg.Done()
			_, errs[i] = bettingService.PlaceBet(ctx, market.ID, userID, models.BetSideYes, 100, cfg.PlacementFee)
		}(i, userID)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "bettor %d", i)
	}

	// The market row lock serializes placements; no pool increment is lost
	detail, err := marketService.GetMarketDetail(ctx, market.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000+bettors*99), detail.Market.YesPool)
	assert.Equal(t, int64(1000), detail.Market.NoPool)
	assert.Len(t, detail.Bets, bettors)
}
