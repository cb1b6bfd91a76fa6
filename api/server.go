package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"pointmarket/config"
	"pointmarket/models"
	"pointmarket/service"
)

type contextKey string

const walletContextKey contextKey = "wallet"

// Server is the collaborator-facing HTTP boundary over the ledger engines.
// Identity arrives pre-verified from the authentication layer as the
// X-Wallet-Address header; no credential checking happens here.
type Server struct {
	cfg               *config.Config
	userService       service.UserService
	marketService     service.MarketService
	bettingService    service.BettingService
	resolutionService service.ResolutionService
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, users service.UserService, markets service.MarketService, betting service.BettingService, resolution service.ResolutionService) *Server {
	return &Server{
		cfg:               cfg,
		userService:       users,
		marketService:     markets,
		bettingService:    betting,
		resolutionService: resolution,
	}
}

// Router builds the HTTP route table
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.walletMiddleware)

		r.Post("/users", s.getOrCreateUser)
		r.Get("/users/me", s.getCurrentUser)
		r.Get("/users/me/bets", s.listUserBets)

		r.Get("/markets", s.listMarkets)
		r.Post("/markets", s.createMarket)
		r.Get("/markets/{id}", s.getMarket)

		r.Post("/markets/{id}/bets", s.placeBet)
		r.Delete("/markets/{id}/bets/{betID}", s.withdrawBet)

		r.Post("/markets/{id}/resolve", s.resolveMarket)
	})

	return r
}

// walletMiddleware extracts the verified wallet identity supplied by the
// authentication layer
func (s *Server) walletMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wallet := r.Header.Get("X-Wallet-Address")
		if wallet == "" {
			writeError(w, http.StatusUnauthorized, "auth_required", "missing wallet identity")
			return
		}
		ctx := context.WithValue(r.Context(), walletContextKey, wallet)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func walletFrom(r *http.Request) string {
	wallet, _ := r.Context().Value(walletContextKey).(string)
	return wallet
}

// currentUser resolves the calling wallet to a ledger user, creating it with
// the starting balance on first contact
func (s *Server) currentUser(r *http.Request) (*models.User, error) {
	return s.userService.GetOrCreateUser(r.Context(), walletFrom(r))
}

func (s *Server) getOrCreateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse(user))
}

func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.getOrCreateUser(w, r)
}

func (s *Server) listUserBets(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bets, err := s.userService.GetUserBets(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": bets})
}

type createMarketRequest struct {
	Question string    `json:"question"`
	ClosesAt time.Time `json:"closesAt"`
	SeedYes  int64     `json:"seedYes"`
	SeedNo   int64     `json:"seedNo"`
}

func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	market, err := s.marketService.CreateMarket(r.Context(), user.ID, req.Question, req.ClosesAt, req.SeedYes, req.SeedNo)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, marketResponse(market))
}

func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	status := models.MarketStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.MarketStatusOpen
	}

	markets, err := s.marketService.ListMarkets(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(markets))
	for _, m := range markets {
		out = append(out, marketResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": out})
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	marketID, ok := marketIDParam(w, r)
	if !ok {
		return
	}

	detail, err := s.marketService.GetMarketDetail(r.Context(), marketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := marketResponse(detail.Market)
	resp["yesPct"] = detail.YesPct
	resp["noPct"] = detail.NoPct
	resp["betCount"] = len(detail.Bets)
	writeJSON(w, http.StatusOK, resp)
}

type placeBetRequest struct {
	Side   models.BetSide `json:"side"`
	Amount int64          `json:"amount"`
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	marketID, ok := marketIDParam(w, r)
	if !ok {
		return
	}

	user, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req placeBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	// Business minimum stake is a boundary policy, not an engine invariant
	if req.Amount < s.cfg.MinimumStake {
		writeError(w, http.StatusBadRequest, "stake_too_small",
			"minimum stake is "+strconv.FormatInt(s.cfg.MinimumStake, 10))
		return
	}

	// The trading fee is boundary policy, layered on top of the base
	// placement fee; the engine only sees the combined rate.
	feeRate := s.cfg.PlacementFee + s.cfg.TradingFee

	receipt, err := s.bettingService.PlaceBet(r.Context(), marketID, user.ID, req.Side, req.Amount, feeRate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) withdrawBet(w http.ResponseWriter, r *http.Request) {
	marketID, ok := marketIDParam(w, r)
	if !ok {
		return
	}
	betID := chi.URLParam(r, "betID")

	user, err := s.currentUser(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	receipt, err := s.bettingService.WithdrawBet(r.Context(), marketID, user.ID, betID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type resolveMarketRequest struct {
	Resolution models.Resolution `json:"resolution"`
}

func (s *Server) resolveMarket(w http.ResponseWriter, r *http.Request) {
	marketID, ok := marketIDParam(w, r)
	if !ok {
		return
	}

	var req resolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	wallet := walletFrom(r)
	if !s.resolutionService.IsResolver(wallet) {
		writeError(w, http.StatusForbidden, "forbidden", "wallet is not authorized to resolve markets")
		return
	}

	result, err := s.resolutionService.ResolveMarket(r.Context(), marketID, req.Resolution, wallet)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"winners":     result.Winners,
		"losers":      result.Losers,
		"totalPayout": result.TotalPayout,
		"status":      result.Market.Status,
	})
}

func marketIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid market id")
		return 0, false
	}
	return id, true
}

func userResponse(user *models.User) map[string]any {
	return map[string]any{
		"id":             user.ID,
		"walletAddress":  user.WalletAddress,
		"pointsBalance":  user.Balance,
		"totalBets":      user.TotalBets,
		"totalWagered":   user.TotalWagered,
		"marketsCreated": user.MarketsCreated,
	}
}

func marketResponse(market *models.Market) map[string]any {
	resp := map[string]any{
		"id":        market.ID,
		"question":  market.Question,
		"status":    market.Status,
		"yesPool":   market.YesPool,
		"noPool":    market.NoPool,
		"closesAt":  market.ClosesAt,
		"createdAt": market.CreatedAt,
	}
	if market.Resolution != nil {
		resp["resolution"] = *market.Resolution
	}
	if market.ResolvedAt != nil {
		resp["resolvedAt"] = *market.ResolvedAt
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "error": message})
}

// writeDomainError maps the ledger's error taxonomy onto HTTP statuses so
// clients can tell expected failures from infrastructure ones
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrMarketNotFound),
		errors.Is(err, models.ErrBetNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, models.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, models.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient_funds", err.Error())
	case errors.Is(err, models.ErrIdentityConflict):
		writeError(w, http.StatusConflict, "identity_conflict", err.Error())
	case errors.Is(err, models.ErrInvariantViolation):
		log.WithError(err).Error("ledger invariant violation")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}
