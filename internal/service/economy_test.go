package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"arsenal-bot/internal/apperr"
	"arsenal-bot/internal/model"
	"arsenal-bot/internal/pkg/lock"
)

var testRewards = Rewards{Hourly: 50, Daily: 500, Weekly: 2500}

func newTestEconomy() (*EconomyService, *memWallets, *memTxs) {
	wallets := newMemWallets()
	txs := &memTxs{}
	return NewEconomyService(wallets, txs, testRewards, lock.New[string]()), wallets, txs
}

func TestAdjustBalance_NoFloor(t *testing.T) {
	svc, wallets, txs := newTestEconomy()
	ctx := context.Background()
	wallets.set("u1", 30)

	w, err := svc.AdjustBalance(ctx, "u1", -50, model.TxTypeCasinoBet, "blackjack bet")
	require.NoError(t, err)
	assert.Equal(t, int64(-20), w.Balance)

	rows := txs.forUser("u1")
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-50), rows[0].Amount)
	assert.Equal(t, model.TxTypeCasinoBet, rows[0].Type)
	assert.Equal(t, "blackjack bet", *rows[0].Description)
}

func TestAdjustBalance_CreatesWallet(t *testing.T) {
	svc, _, _ := newTestEconomy()

	w, err := svc.AdjustBalance(context.Background(), "new", 10, model.TxTypeAdminAdd, "")
	require.NoError(t, err)
	assert.Equal(t, int64(10), w.Balance)
	assert.Equal(t, int64(10), w.TotalEarned)
}

func TestAdjustBalance_LogFailureStillReturnsWallet(t *testing.T) {
	svc, _, txs := newTestEconomy()
	txs.fail = true

	w, err := svc.AdjustBalance(context.Background(), "u1", 40, model.TxTypeAdminAdd, "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
	require.NotNil(t, w)
	assert.Equal(t, int64(40), w.Balance)
}

func TestDebit(t *testing.T) {
	svc, wallets, _ := newTestEconomy()
	ctx := context.Background()
	wallets.set("u1", 100)

	_, err := svc.Debit(ctx, "u1", 101, model.TxTypeCasinoBet, "")
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.True(t, apperr.IsPrecondition(err))

	_, err = svc.Debit(ctx, "u1", 0, model.TxTypeCasinoBet, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	w, err := svc.Debit(ctx, "u1", 100, model.TxTypeCasinoBet, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), w.Balance)
}

func TestClaimTimedReward_Daily(t *testing.T) {
	svc, wallets, txs := newTestEconomy()
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	_, amount, err := svc.ClaimTimedReward(ctx, "u1", model.RewardDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(500), amount)
	assert.Equal(t, int64(500), wallets.balance("u1"))

	now = now.Add(23 * time.Hour)
	_, _, err = svc.ClaimTimedReward(ctx, "u1", model.RewardDaily)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
	assert.True(t, apperr.IsPrecondition(err))

	var cd *CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, time.Hour, cd.Remaining)
	assert.Equal(t, int64(500), wallets.balance("u1"), "refused claim must not credit")

	now = now.Add(time.Hour)
	_, amount, err = svc.ClaimTimedReward(ctx, "u1", model.RewardDaily)
	require.NoError(t, err)
	assert.Equal(t, int64(500), amount)
	assert.Equal(t, int64(1000), wallets.balance("u1"))
	assert.Len(t, txs.forUser("u1"), 2)
}

func TestClaimTimedReward_KindsAreIndependent(t *testing.T) {
	svc, wallets, _ := newTestEconomy()
	ctx := context.Background()

	for _, kind := range []model.RewardKind{model.RewardHourly, model.RewardDaily, model.RewardWeekly} {
		_, _, err := svc.ClaimTimedReward(ctx, "u1", kind)
		require.NoError(t, err, kind)
	}
	assert.Equal(t, int64(50+500+2500), wallets.balance("u1"))

	_, _, err := svc.ClaimTimedReward(ctx, "u1", model.RewardKind("monthly"))
	assert.True(t, apperr.IsPrecondition(err))
}

func TestClaimTimedReward_ConcurrentClaimsCreditOnce(t *testing.T) {
	svc, wallets, _ := newTestEconomy()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = svc.ClaimTimedReward(ctx, "u1", model.RewardHourly)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), wallets.balance("u1"))
}

func TestTransfer(t *testing.T) {
	svc, wallets, txs := newTestEconomy()
	ctx := context.Background()
	wallets.set("a", 100)

	assert.ErrorIs(t, svc.Transfer(ctx, "a", "b", 0), ErrInvalidAmount)
	assert.ErrorIs(t, svc.Transfer(ctx, "a", "a", 10), ErrSelfTransfer)
	assert.ErrorIs(t, svc.Transfer(ctx, "a", "b", 101), ErrInsufficientBalance)

	require.NoError(t, svc.Transfer(ctx, "a", "b", 40))
	assert.Equal(t, int64(60), wallets.balance("a"))
	assert.Equal(t, int64(40), wallets.balance("b"))
	assert.Len(t, txs.forUser("a"), 1)
	assert.Len(t, txs.forUser("b"), 1)
}

func TestTransfer_RollsBackOnReceiverFailure(t *testing.T) {
	svc, wallets, _ := newTestEconomy()
	wallets.set("a", 100)
	wallets.failOn = "b"

	err := svc.Transfer(context.Background(), "a", "b", 40)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInfrastructure, apperr.KindOf(err))
	assert.Equal(t, int64(100), wallets.balance("a"))
}

// The balance always equals the starting balance plus the sum of the logged
// deltas when every log insert succeeds.
func TestAdjustBalance_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, wallets, txs := newTestEconomy()
		start := rapid.Int64Range(-1000, 1000).Draw(t, "start")
		wallets.set("u", start)

		deltas := rapid.SliceOf(rapid.Int64Range(-500, 500)).Draw(t, "deltas")
		for _, d := range deltas {
			if _, err := svc.AdjustBalance(context.Background(), "u", d, model.TxTypeAdminAdd, ""); err != nil {
				t.Fatal(err)
			}
		}

		sum := start
		for _, tx := range txs.forUser("u") {
			sum += tx.Amount
		}
		if got := wallets.balance("u"); got != sum {
			t.Fatalf("balance %d, expected %d", got, sum)
		}
		if len(txs.forUser("u")) != len(deltas) {
			t.Fatalf("%d rows for %d deltas", len(txs.forUser("u")), len(deltas))
		}
	})
}
