package gamify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/gamify"
	"github.com/kvaranth/dayclock/plan"
	"github.com/kvaranth/dayclock/store/memory"
)

func newTestFinalizer(store *memory.Store) *gamify.Finalizer {
	return gamify.NewFinalizer(store, fixedClock{now: time.Date(2026, 7, 31, 23, 59, 0, 0, time.UTC)}, zap.NewNop().Sugar())
}

func seedDayPlan(t *testing.T, store *memory.Store, userID, date string, tasks []plan.Task) *plan.DayPlan {
	t.Helper()
	dp, err := store.GetOrCreateDayPlan(context.Background(), userID, date)
	require.NoError(t, err)
	for i := range tasks {
		tasks[i].PlanID = dp.ID
		require.NoError(t, store.SaveTask(context.Background(), tasks[i]))
	}
	return dp
}

func TestFinalizeDay_NoPlan_ReturnsNilNil(t *testing.T) {
	store := memory.New()
	fin := newTestFinalizer(store)

	result, err := fin.FinalizeDay(context.Background(), "u1", "2026-07-31")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestFinalizeDay_AlreadyFinalized_IsNoop(t *testing.T) {
	store := memory.New()
	dp := seedDayPlan(t, store, "u1", "2026-07-31", nil)
	require.NoError(t, store.FinalizeDayPlan(context.Background(), dp.ID, 0, 0, 0))
	fin := newTestFinalizer(store)

	result, err := fin.FinalizeDay(context.Background(), "u1", "2026-07-31")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestFinalizeDay_GamificationDisabled_IsNoop(t *testing.T) {
	store := memory.New()
	seedDayPlan(t, store, "u1", "2026-07-31", nil)
	st := plan.DefaultSettings()
	st.UserID = "u1"
	st.GamificationEnabled = false
	require.NoError(t, store.SaveSettings(context.Background(), st))
	fin := newTestFinalizer(store)

	result, err := fin.FinalizeDay(context.Background(), "u1", "2026-07-31")
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestFinalizeDay_CompletedOnTime_CreditsAndExtendsStreak(t *testing.T) {
	store := memory.New()
	seedDayPlan(t, store, "u1", "2026-07-31", []plan.Task{
		{ID: plan.NewTaskID(), AllocatedSeconds: 300, ElapsedSeconds: 0, Priority: plan.PriorityHigh, Status: plan.StatusCompleted},
	})
	fin := newTestFinalizer(store)

	result, err := fin.FinalizeDay(context.Background(), "u1", "2026-07-31")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Equal(t, 2, result.Bonus)
	require.Equal(t, 0, result.Penalty)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.NewStreak)
	require.False(t, result.StreakBroken)

	balance, _ := store.GetCoinBalance(context.Background(), "u1")
	require.Equal(t, int64(2), balance.Balance)
	require.Equal(t, 1, balance.Streak)
}

func TestFinalizeDay_SkippedTask_BreaksStreak(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.SetStreak(context.Background(), "u1", 3))
	seedDayPlan(t, store, "u1", "2026-07-31", []plan.Task{
		{ID: plan.NewTaskID(), AllocatedSeconds: 300, Priority: plan.PriorityHigh, Status: plan.StatusSkipped},
	})
	fin := newTestFinalizer(store)

	result, err := fin.FinalizeDay(context.Background(), "u1", "2026-07-31")
	require.NoError(t, err)
	require.True(t, result.Total < 0)
	require.Equal(t, 0, result.NewStreak)
	require.True(t, result.StreakBroken)
}

func TestFinalizeDay_PendingAtDayEnd_TreatedAsSkippedForPenalty(t *testing.T) {
	store := memory.New()
	seedDayPlan(t, store, "u1", "2026-07-31", []plan.Task{
		{ID: plan.NewTaskID(), AllocatedSeconds: 300, Priority: plan.PriorityHigh, Status: plan.StatusPending},
	})
	fin := newTestFinalizer(store)

	result, err := fin.FinalizeDay(context.Background(), "u1", "2026-07-31")
	require.NoError(t, err)
	require.Equal(t, 1, result.Penalty)

	dp, _ := store.GetDayPlan(context.Background(), "u1", "2026-07-31")
	require.Equal(t, plan.StatusPending, dp.Tasks[0].Status)
}
