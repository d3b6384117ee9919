package gamify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/gamify"
	"github.com/kvaranth/dayclock/plan"
	"github.com/kvaranth/dayclock/store/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestLedger(store *memory.Store) *gamify.Ledger {
	return gamify.NewLedger(store, fixedClock{now: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)}, zap.NewNop().Sugar())
}

func TestCredit_IncreasesBalance(t *testing.T) {
	store := memory.New()
	ledger := newTestLedger(store)

	_, err := ledger.Credit(context.Background(), "u1", 5, "test credit", nil, nil)
	require.NoError(t, err)

	cb, err := store.GetCoinBalance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(5), cb.Balance)
}

func TestDebitPenalty_ClampsAtZero_WhenNegativeBalanceDisallowed(t *testing.T) {
	store := memory.New()
	store.SaveSettings(context.Background(), plan.Settings{UserID: "u1", AllowNegativeBalance: false})
	ledger := newTestLedger(store)

	_, err := ledger.DebitPenalty(context.Background(), "u1", -10, "over-penalty", nil, nil)
	require.NoError(t, err)

	cb, _ := store.GetCoinBalance(context.Background(), "u1")
	require.Equal(t, int64(0), cb.Balance)
}

func TestDebitPenalty_GoesNegative_WhenAllowed(t *testing.T) {
	store := memory.New()
	store.SaveSettings(context.Background(), plan.Settings{UserID: "u1", AllowNegativeBalance: true})
	ledger := newTestLedger(store)

	_, err := ledger.DebitPenalty(context.Background(), "u1", -10, "over-penalty", nil, nil)
	require.NoError(t, err)

	cb, _ := store.GetCoinBalance(context.Background(), "u1")
	require.Equal(t, int64(-10), cb.Balance)
}

func TestPurchase_SoldOut_Fails(t *testing.T) {
	store := memory.New()
	count := 0
	store.SeedReward(plan.Reward{ID: "r1", Name: "Movie Night", Price: 10, RewardType: plan.RewardLimited, RemainingCount: &count, IsActive: true})
	ledger := newTestLedger(store)

	_, err := ledger.Purchase(context.Background(), "u1", "r1")
	require.Error(t, err)

	var pe *plan.PurchaseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "sold out", pe.Reason)
}

func TestPurchase_Insufficient_Fails(t *testing.T) {
	store := memory.New()
	store.SeedReward(plan.Reward{ID: "r1", Name: "Movie Night", Price: 100, RewardType: plan.RewardSingle, IsActive: true})
	ledger := newTestLedger(store)

	_, err := ledger.Purchase(context.Background(), "u1", "r1")
	require.Error(t, err)

	var pe *plan.PurchaseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "insufficient", pe.Reason)
}

func TestPurchase_Succeeds_AndDecrementsLimitedStock(t *testing.T) {
	store := memory.New()
	count := 1
	store.SeedReward(plan.Reward{ID: "r1", Name: "Movie Night", Price: 10, RewardType: plan.RewardLimited, RemainingCount: &count, IsActive: true})
	ledger := newTestLedger(store)

	_, err := ledger.Credit(context.Background(), "u1", 10, "seed", nil, nil)
	require.NoError(t, err)

	tx, err := ledger.Purchase(context.Background(), "u1", "r1")
	require.NoError(t, err)
	require.Equal(t, int64(-10), tx.Amount)

	cb, _ := store.GetCoinBalance(context.Background(), "u1")
	require.Equal(t, int64(0), cb.Balance)

	reward, _ := store.GetReward(context.Background(), "r1")
	require.Equal(t, 0, *reward.RemainingCount)
}

func TestPurchase_ConcurrentCallsAgainstOneUnitOfStock_OnlyOneSucceeds(t *testing.T) {
	// GIVEN: a Limited reward with exactly one unit of stock and enough
	// balance for two purchases. Two concurrent Purchase calls must not
	// both succeed — the stock decrement, balance debit and ledger append
	// happen in one store transaction (PurchaseReward), so the loser sees
	// a "sold out" PurchaseError instead of oversold stock.
	store := memory.New()
	count := 1
	store.SeedReward(plan.Reward{ID: "r1", Name: "Movie Night", Price: 10, RewardType: plan.RewardLimited, RemainingCount: &count, IsActive: true})
	ledger := newTestLedger(store)

	_, err := ledger.Credit(context.Background(), "u1", 20, "seed", nil, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = ledger.Purchase(context.Background(), "u1", "r1")
		}(i)
	}
	wg.Wait()

	successes, failures := 0, 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		failures++
		var pe *plan.PurchaseError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, "sold out", pe.Reason)
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)

	reward, _ := store.GetReward(context.Background(), "r1")
	require.Equal(t, 0, *reward.RemainingCount)

	cb, _ := store.GetCoinBalance(context.Background(), "u1")
	require.Equal(t, int64(10), cb.Balance, "exactly one debit must have been applied")
}
