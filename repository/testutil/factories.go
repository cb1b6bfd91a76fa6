package testutil

import (
	"time"

	"github.com/google/uuid"

	"pointmarket/models"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(walletAddress string) *models.User {
	now := time.Now()
	return &models.User{
		WalletAddress: walletAddress,
		Balance:       10000,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(walletAddress string, balance int64) *models.User {
	user := CreateTestUser(walletAddress)
	user.Balance = balance
	return user
}

// CreateTestMarket creates an open test market with default seed pools
func CreateTestMarket(creatorID int64, question string) *models.Market {
	now := time.Now()
	return &models.Market{
		CreatorID: creatorID,
		Question:  question,
		Status:    models.MarketStatusOpen,
		YesPool:   1000,
		NoPool:    1000,
		ClosesAt:  now.Add(24 * time.Hour),
		CreatedAt: now,
	}
}

// CreateTestMarketWithPools creates an open test market with specific pools
func CreateTestMarketWithPools(creatorID int64, question string, yesPool, noPool int64) *models.Market {
	market := CreateTestMarket(creatorID, question)
	market.YesPool = yesPool
	market.NoPool = noPool
	return market
}

// CreateTestBet creates a test bet with a fresh identity
func CreateTestBet(userID, marketID int64, side models.BetSide, amount int64) *models.Bet {
	return &models.Bet{
		ID:        uuid.NewString(),
		UserID:    userID,
		MarketID:  marketID,
		Side:      side,
		Amount:    amount,
		Fee:       amount / 100,
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(userID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		BalanceBefore:   10000,
		BalanceAfter:    9000,
		ChangeAmount:    -1000,
		TransactionType: transactionType,
		TransactionMetadata: map[string]interface{}{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}
