package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvaranth/dayclock/plan"
)

func newTestStore(t *testing.T) *Store {
	store, err := New(":memory:", "u1")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew_SeedsDefaultSettingsAndBalance(t *testing.T) {
	store := newTestStore(t)

	st, err := store.GetSettings(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, st.GamificationEnabled)

	cb, err := store.GetCoinBalance(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, int64(0), cb.Balance)
}

func TestGetOrCreateDayPlan_CreatesOnce_ThenReusesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dp1, err := store.GetOrCreateDayPlan(ctx, "u1", "2026-07-31")
	require.NoError(t, err)

	dp2, err := store.GetOrCreateDayPlan(ctx, "u1", "2026-07-31")
	require.NoError(t, err)

	require.Equal(t, dp1.ID, dp2.ID)
}

func TestSaveTask_RoundTripsThroughGetDayPlan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dp, err := store.GetOrCreateDayPlan(ctx, "u1", "2026-07-31")
	require.NoError(t, err)

	task := plan.Task{
		ID: plan.NewTaskID(), PlanID: dp.ID, Name: "Write report",
		AllocatedSeconds: 600, Status: plan.StatusPending, Priority: plan.PriorityHigh,
		CreatedAt: time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveTask(ctx, task))

	dp2, err := store.GetDayPlan(ctx, "u1", "2026-07-31")
	require.NoError(t, err)
	require.Len(t, dp2.Tasks, 1)
	require.Equal(t, "Write report", dp2.Tasks[0].Name)
	require.Equal(t, plan.PriorityHigh, dp2.Tasks[0].Priority)

	// SaveTask is an upsert: re-saving with changes updates the same row
	task.ElapsedSeconds = 120
	require.NoError(t, store.SaveTask(ctx, task))
	dp3, _ := store.GetDayPlan(ctx, "u1", "2026-07-31")
	require.Len(t, dp3.Tasks, 1)
	require.Equal(t, 120, dp3.Tasks[0].ElapsedSeconds)
}

func TestDeleteTask_RemovesFromDayPlan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dp, _ := store.GetOrCreateDayPlan(ctx, "u1", "2026-07-31")
	task := plan.Task{ID: plan.NewTaskID(), PlanID: dp.ID, Name: "X", AllocatedSeconds: 300, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveTask(ctx, task))

	require.NoError(t, store.DeleteTask(ctx, task.ID))

	dp2, _ := store.GetDayPlan(ctx, "u1", "2026-07-31")
	require.Empty(t, dp2.Tasks)
}

func TestSaveSettings_RoundTrips_IncludingOverrideMinutes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	override := 45
	st := plan.Settings{
		UserID: "u1", OverrunBehavior: plan.OverrunStop, OverrunSource: plan.SourceProportional,
		ProcrastinationOverrideMinutes: &override, NotifyBeforeMinutes: 15,
		GamificationEnabled: false, BaseBonus: 1, BasePenalty: 1,
		AllowNegativeBalance: true, Theme: "dark",
	}
	require.NoError(t, store.SaveSettings(ctx, st))

	got, err := store.GetSettings(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, plan.OverrunStop, got.OverrunBehavior)
	require.Equal(t, plan.SourceProportional, got.OverrunSource)
	require.NotNil(t, got.ProcrastinationOverrideMinutes)
	require.Equal(t, 45, *got.ProcrastinationOverrideMinutes)
	require.True(t, got.AllowNegativeBalance)
	require.Equal(t, "dark", got.Theme)
}

func TestAppendTransaction_UpdatesBalanceAndStreakAtomically(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	streak := 3
	tx := plan.CoinTransaction{CreatedAt: time.Now().UTC(), Amount: 10, Reason: "day total"}
	require.NoError(t, store.AppendTransaction(ctx, "u1", tx, 10, &streak))

	cb, err := store.GetCoinBalance(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(10), cb.Balance)
	require.Equal(t, 3, cb.Streak)
}

func TestSetStreak_UpdatesStreakWithoutTouchingBalance(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tx := plan.CoinTransaction{CreatedAt: time.Now().UTC(), Amount: 5, Reason: "seed"}
	require.NoError(t, store.AppendTransaction(ctx, "u1", tx, 5, nil))

	require.NoError(t, store.SetStreak(ctx, "u1", 7))

	cb, _ := store.GetCoinBalance(ctx, "u1")
	require.Equal(t, int64(5), cb.Balance)
	require.Equal(t, 7, cb.Streak)
}

func seedReward(t *testing.T, store *Store, r plan.Reward) {
	t.Helper()
	_, err := store.db.Exec(
		`INSERT INTO rewards (id, name, description, price, reward_type, remaining_count, initial_count, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Description, r.Price, r.RewardType, r.RemainingCount, r.InitialCount, r.IsActive, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, err)
}

func TestGetReward_RoundTripsLimitedStock(t *testing.T) {
	store := newTestStore(t)
	count := 2
	seedReward(t, store, plan.Reward{ID: "r1", Name: "Movie Night", Price: 10, RewardType: plan.RewardLimited, RemainingCount: &count, IsActive: true})

	r, err := store.GetReward(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "Movie Night", r.Name)
	require.Equal(t, 2, *r.RemainingCount)
}

func TestDecrementRewardStock_StopsAtZero(t *testing.T) {
	store := newTestStore(t)
	count := 1
	seedReward(t, store, plan.Reward{ID: "r1", Name: "Movie Night", Price: 10, RewardType: plan.RewardLimited, RemainingCount: &count, IsActive: true})
	ctx := context.Background()

	require.NoError(t, store.DecrementRewardStock(ctx, "r1"))
	r, _ := store.GetReward(ctx, "r1")
	require.Equal(t, 0, *r.RemainingCount)

	require.NoError(t, store.DecrementRewardStock(ctx, "r1")) // already zero, guarded by WHERE clause
	r, _ = store.GetReward(ctx, "r1")
	require.Equal(t, 0, *r.RemainingCount)
}

func TestCopyTaskToDate_MarksSourceCarriedAndCreatesPendingCopy(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dp, _ := store.GetOrCreateDayPlan(ctx, "u1", "2026-07-31")
	task := plan.Task{ID: plan.NewTaskID(), PlanID: dp.ID, Name: "Write report", AllocatedSeconds: 600, Status: plan.StatusPending, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveTask(ctx, task))

	require.NoError(t, store.CopyTaskToDate(ctx, task.ID, "u1", "2026-08-01"))

	source, _ := store.GetDayPlan(ctx, "u1", "2026-07-31")
	require.True(t, source.Tasks[0].CarriedOver)

	target, _ := store.GetDayPlan(ctx, "u1", "2026-08-01")
	require.Len(t, target.Tasks, 1)
	require.Equal(t, "Write report", target.Tasks[0].Name)
	require.Equal(t, plan.StatusPending, target.Tasks[0].Status)
}
