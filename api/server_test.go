package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmarket/config"
	"pointmarket/models"
)

type stubUserService struct {
	user *models.User
	bets []*models.Bet
	err  error
}

func (s *stubUserService) GetOrCreateUser(ctx context.Context, walletAddress string) (*models.User, error) {
	return s.user, s.err
}

func (s *stubUserService) GetUserBets(ctx context.Context, userID int64) ([]*models.Bet, error) {
	return s.bets, s.err
}

type stubMarketService struct {
	market *models.Market
	detail *models.MarketDetail
	list   []*models.Market
	err    error
}

func (s *stubMarketService) CreateMarket(ctx context.Context, creatorID int64, question string, closesAt time.Time, seedYes, seedNo int64) (*models.Market, error) {
	return s.market, s.err
}

func (s *stubMarketService) GetMarketDetail(ctx context.Context, marketID int64) (*models.MarketDetail, error) {
	return s.detail, s.err
}

func (s *stubMarketService) ListMarkets(ctx context.Context, status models.MarketStatus) ([]*models.Market, error) {
	return s.list, s.err
}

type stubBettingService struct {
	receipt    *models.BetReceipt
	withdrawal *models.WithdrawalReceipt
	err        error

	gotAmount  int64
	gotFeeRate float64
}

func (s *stubBettingService) PlaceBet(ctx context.Context, marketID, userID int64, side models.BetSide, amount int64, feeRate float64) (*models.BetReceipt, error) {
	s.gotAmount = amount
	s.gotFeeRate = feeRate
	return s.receipt, s.err
}

func (s *stubBettingService) WithdrawBet(ctx context.Context, marketID, userID int64, betID string) (*models.WithdrawalReceipt, error) {
	return s.withdrawal, s.err
}

type stubResolutionService struct {
	result    *models.ResolutionResult
	err       error
	resolvers map[string]bool
}

func (s *stubResolutionService) ResolveMarket(ctx context.Context, marketID int64, resolution models.Resolution, resolverWallet string) (*models.ResolutionResult, error) {
	return s.result, s.err
}

func (s *stubResolutionService) IsResolver(walletAddress string) bool {
	return s.resolvers[walletAddress]
}

func testServer(users *stubUserService, markets *stubMarketService, betting *stubBettingService, resolution *stubResolutionService) http.Handler {
	cfg := &config.Config{MinimumStake: 50, PlacementFee: 0.01, TradingFee: 0.02}
	if users == nil {
		users = &stubUserService{user: &models.User{ID: 1, WalletAddress: "0xabc", Balance: 10000}}
	}
	if markets == nil {
		markets = &stubMarketService{}
	}
	if betting == nil {
		betting = &stubBettingService{}
	}
	if resolution == nil {
		resolution = &stubResolutionService{resolvers: map[string]bool{}}
	}
	return NewServer(cfg, users, markets, betting, resolution).Router()
}

func doRequest(t *testing.T, handler http.Handler, method, path, wallet string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if wallet != "" {
		req.Header.Set("X-Wallet-Address", wallet)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_RequiresWalletIdentity(t *testing.T) {
	handler := testServer(nil, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/api/users/me", "0xabc", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_HealthNeedsNoIdentity(t *testing.T) {
	handler := testServer(nil, nil, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_PlaceBet(t *testing.T) {
	t.Run("success passes the combined placement and trading fee rate", func(t *testing.T) {
		betting := &stubBettingService{receipt: &models.BetReceipt{BetID: "bet-1", Fee: 30, NetAmount: 970, NewBalance: 9000}}
		handler := testServer(nil, nil, betting, nil)

		rec := doRequest(t, handler, http.MethodPost, "/api/markets/7/bets", "0xabc",
			map[string]any{"side": "yes", "amount": 1000})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, int64(1000), betting.gotAmount)
		assert.InDelta(t, 0.03, betting.gotFeeRate, 1e-9)
	})

	t.Run("below minimum stake is rejected at the boundary", func(t *testing.T) {
		betting := &stubBettingService{}
		handler := testServer(nil, nil, betting, nil)

		rec := doRequest(t, handler, http.MethodPost, "/api/markets/7/bets", "0xabc",
			map[string]any{"side": "yes", "amount": 49})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Zero(t, betting.gotAmount)
	})

	t.Run("closed market maps to conflict", func(t *testing.T) {
		betting := &stubBettingService{err: models.ErrMarketClosed}
		handler := testServer(nil, nil, betting, nil)

		rec := doRequest(t, handler, http.MethodPost, "/api/markets/7/bets", "0xabc",
			map[string]any{"side": "yes", "amount": 1000})

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("insufficient funds maps to unprocessable", func(t *testing.T) {
		betting := &stubBettingService{err: models.ErrInsufficientFunds}
		handler := testServer(nil, nil, betting, nil)

		rec := doRequest(t, handler, http.MethodPost, "/api/markets/7/bets", "0xabc",
			map[string]any{"side": "yes", "amount": 1000})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("bad market id", func(t *testing.T) {
		handler := testServer(nil, nil, nil, nil)

		rec := doRequest(t, handler, http.MethodPost, "/api/markets/not-a-number/bets", "0xabc",
			map[string]any{"side": "yes", "amount": 1000})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_WithdrawBet_NotFound(t *testing.T) {
	betting := &stubBettingService{err: models.ErrBetNotFound}
	handler := testServer(nil, nil, betting, nil)

	rec := doRequest(t, handler, http.MethodDelete, "/api/markets/7/bets/bet-1", "0xabc", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ResolveMarket_Authorization(t *testing.T) {
	resolution := &stubResolutionService{
		resolvers: map[string]bool{"0xresolver": true},
		result: &models.ResolutionResult{
			Market:      &models.Market{ID: 7, Status: models.MarketStatusResolved},
			Winners:     1,
			TotalPayout: 1502,
		},
	}
	handler := testServer(nil, nil, nil, resolution)

	rec := doRequest(t, handler, http.MethodPost, "/api/markets/7/resolve", "0xrando",
		map[string]any{"resolution": "yes"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/api/markets/7/resolve", "0xresolver",
		map[string]any{"resolution": "yes"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1502), body["totalPayout"])
}

func TestServer_GetMarket(t *testing.T) {
	markets := &stubMarketService{
		detail: &models.MarketDetail{
			Market: &models.Market{ID: 7, Question: "q", Status: models.MarketStatusOpen, YesPool: 1990, NoPool: 1000},
			YesPct: 33,
			NoPct:  67,
		},
	}
	handler := testServer(nil, markets, nil, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/markets/7", "0xabc", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(33), body["yesPct"])
	assert.Equal(t, float64(67), body["noPct"])

	t.Run("not found", func(t *testing.T) {
		handler := testServer(nil, &stubMarketService{err: models.ErrMarketNotFound}, nil, nil)
		rec := doRequest(t, handler, http.MethodGet, "/api/markets/7", "0xabc", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
