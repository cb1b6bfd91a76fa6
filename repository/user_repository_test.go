package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmarket/models"
	"pointmarket/repository/testutil"
)

func TestUserRepository_GetByWalletAddress(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByWalletAddress(ctx, "0xmissing")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user found", func(t *testing.T) {
		created, err := repo.Create(ctx, "0xabc", 10000)
		require.NoError(t, err)
		require.NotNil(t, created)

		user, err := repo.GetByWalletAddress(ctx, "0xabc")
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, created.ID, user.ID)
		assert.Equal(t, "0xabc", user.WalletAddress)
		assert.Equal(t, int64(10000), user.Balance)
		assert.Equal(t, int64(0), user.TotalBets)
	})
}

func TestUserRepository_Create_DuplicateWallet(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Create(ctx, "0xabc", 10000)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "0xabc", 10000)
	assert.Error(t, err)
}

func TestUserRepository_BalanceMutations(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, err := repo.Create(ctx, "0xabc", 1000)
	require.NoError(t, err)

	t.Run("add balance", func(t *testing.T) {
		require.NoError(t, repo.AddBalance(ctx, user.ID, 500))

		updated, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1500), updated.Balance)
	})

	t.Run("deduct balance", func(t *testing.T) {
		require.NoError(t, repo.DeductBalance(ctx, user.ID, 1500))

		updated, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), updated.Balance)
	})

	t.Run("deduct past zero fails", func(t *testing.T) {
		err := repo.DeductBalance(ctx, user.ID, 1)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)

		// Balance untouched
		updated, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), updated.Balance)
	})

	t.Run("missing user", func(t *testing.T) {
		assert.ErrorIs(t, repo.AddBalance(ctx, 999999, 100), models.ErrUserNotFound)
		assert.ErrorIs(t, repo.DeductBalance(ctx, 999999, 100), models.ErrUserNotFound)
	})
}

func TestUserRepository_BetStats(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	user, err := repo.Create(ctx, "0xabc", 10000)
	require.NoError(t, err)

	require.NoError(t, repo.IncrementBetStats(ctx, user.ID, 1000))
	require.NoError(t, repo.IncrementBetStats(ctx, user.ID, 500))

	updated, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.TotalBets)
	assert.Equal(t, int64(1500), updated.TotalWagered)

	require.NoError(t, repo.DecrementBetStats(ctx, user.ID, 1000))

	updated, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.TotalBets)
	assert.Equal(t, int64(500), updated.TotalWagered)

	// The floor holds even when the reversal overshoots
	require.NoError(t, repo.DecrementBetStats(ctx, user.ID, 9999))
	require.NoError(t, repo.DecrementBetStats(ctx, user.ID, 9999))

	updated, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.TotalBets)
	assert.Equal(t, int64(0), updated.TotalWagered)
}
