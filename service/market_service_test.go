package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pointmarket/models"
)

func TestMarketService_CreateMarket_Success(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks(ctx)
	svc := NewMarketService(m.factory, ledgerConfig())

	creator := &models.User{ID: 1, WalletAddress: "0xabc", Balance: 10000}
	closesAt := time.Now().Add(48 * time.Hour)

	m.uow.On("Commit").Return(nil)
	m.userRepo.On("GetByID", ctx, int64(1)).Return(creator, nil)
	m.marketRepo.On("Create", ctx, mock.MatchedBy(func(mk *models.Market) bool {
		return mk.CreatorID == 1 && mk.Status == models.MarketStatusOpen &&
			mk.YesPool == 1000 && mk.NoPool == 1000
	})).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Market).ID = 7
	})
	m.userRepo.On("DeductBalance", ctx, int64(1), int64(500)).Return(nil)
	m.historyRepo.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
		return h.UserID == 1 && h.ChangeAmount == -500 &&
			h.TransactionType == models.TransactionTypeMarketCreate
	})).Return(nil)
	m.userRepo.On("IncrementMarketsCreated", ctx, int64(1)).Return(nil)
	m.eventBus.On("Publish", mock.Anything).Return()

	market, err := svc.CreateMarket(ctx, 1, "Will it rain tomorrow?", closesAt, 1000, 1000)

	assert.NoError(t, err)
	assert.NotNil(t, market)
	assert.Equal(t, int64(7), market.ID)
	assert.Equal(t, models.MarketStatusOpen, market.Status)
	m.userRepo.AssertExpectations(t)
	m.marketRepo.AssertExpectations(t)
}

func TestMarketService_CreateMarket_CannotAffordFee(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks(ctx)
	svc := NewMarketService(m.factory, ledgerConfig())

	creator := &models.User{ID: 1, Balance: 400}

	m.userRepo.On("GetByID", ctx, int64(1)).Return(creator, nil)

	market, err := svc.CreateMarket(ctx, 1, "Will it rain tomorrow?", time.Now().Add(time.Hour), 0, 0)

	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Nil(t, market)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestMarketService_CreateMarket_Validation(t *testing.T) {
	m := newBettingMocks(context.Background())
	svc := NewMarketService(m.factory, ledgerConfig())
	ctx := context.Background()

	_, err := svc.CreateMarket(ctx, 1, "", time.Now().Add(time.Hour), 0, 0)
	assert.Error(t, err)

	_, err = svc.CreateMarket(ctx, 1, "q", time.Now().Add(-time.Hour), 0, 0)
	assert.Error(t, err)

	_, err = svc.CreateMarket(ctx, 1, "q", time.Now().Add(time.Hour), -1, 0)
	assert.Error(t, err)

	m.factory.AssertNotCalled(t, "Create")
}

func TestMarketService_GetMarketDetail(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks(ctx)
	svc := NewMarketService(m.factory, ledgerConfig())

	market := openMarket(7, 1990, 1000)
	bets := []*models.Bet{
		{ID: "bet-1", UserID: 42, MarketID: 7, Side: models.BetSideYes, Amount: 1000},
	}

	m.marketRepo.On("GetByID", ctx, int64(7)).Return(market, nil)
	m.betRepo.On("ListByMarket", ctx, int64(7)).Return(bets, nil)

	detail, err := svc.GetMarketDetail(ctx, 7)

	assert.NoError(t, err)
	assert.Equal(t, market, detail.Market)
	assert.Len(t, detail.Bets, 1)
	// YES carries two thirds of the volume, so its displayed odds shrink
	assert.Equal(t, 33, detail.YesPct)
	assert.Equal(t, 67, detail.NoPct)
}

func TestMarketService_GetMarketDetail_NotFound(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks(ctx)
	svc := NewMarketService(m.factory, ledgerConfig())

	m.marketRepo.On("GetByID", ctx, int64(7)).Return(nil, nil)

	detail, err := svc.GetMarketDetail(ctx, 7)

	assert.ErrorIs(t, err, models.ErrMarketNotFound)
	assert.Nil(t, detail)
}

func TestMarketService_ListMarkets(t *testing.T) {
	ctx := context.Background()
	m := newBettingMocks(ctx)
	svc := NewMarketService(m.factory, ledgerConfig())

	markets := []*models.Market{openMarket(7, 0, 0), openMarket(8, 100, 100)}

	m.marketRepo.On("ListByStatus", ctx, models.MarketStatusOpen).Return(markets, nil)

	got, err := svc.ListMarkets(ctx, models.MarketStatusOpen)

	assert.NoError(t, err)
	assert.Len(t, got, 2)
}
