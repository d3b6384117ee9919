package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/plan"
	"github.com/kvaranth/dayclock/store/memory"
)

// tick() runs once per real second in production; these tests drive it
// directly to exercise the per-second accounting algorithm (spec.md §4.1)
// deterministically, without waiting on the ticker.

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func newTestEngine(settings plan.Settings, tasks []plan.Task) *Engine {
	e := &Engine{
		store:        nil,
		clock:        stubClock{now: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)},
		logger:       zap.NewNop().Sugar(),
		userID:       "u1",
		saveInterval: DefaultSaveInterval,
		planID:       "plan-1",
		date:         "2026-07-31",
		tasks:        tasks,
		settings:     settings,
	}
	return e
}

func TestTick_NoActiveTask_CountsProcrastination(t *testing.T) {
	e := newTestEngine(plan.DefaultSettings(), nil)
	e.tick()
	require.Equal(t, 1, e.procUsed)
}

func TestTick_ActiveTask_IncrementsElapsed(t *testing.T) {
	task := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 300, Status: plan.StatusActive}
	e := newTestEngine(plan.DefaultSettings(), []plan.Task{task})
	e.activeTaskID = &task.ID

	e.tick()

	require.Equal(t, 1, e.findActive().ElapsedSeconds)
	require.Equal(t, 0, e.procUsed)
}

func TestTick_OverrunStop_DeactivatesAndCountsProcrastination(t *testing.T) {
	task := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 1, ElapsedSeconds: 1, Status: plan.StatusActive}
	settings := plan.DefaultSettings()
	settings.OverrunBehavior = plan.OverrunStop
	e := newTestEngine(settings, []plan.Task{task})
	e.activeTaskID = &task.ID

	e.tick()

	require.Nil(t, e.activeTaskID)
	require.Equal(t, 1, e.procUsed)
	require.Equal(t, 1, e.tasks[0].ElapsedSeconds, "elapsed is rolled back to the allocated boundary")
}

func TestTick_OverrunProcrastination_AccumulatesInProcUsed(t *testing.T) {
	task := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 1, ElapsedSeconds: 1, Status: plan.StatusActive}
	settings := plan.DefaultSettings()
	settings.OverrunBehavior = plan.OverrunContinue
	settings.OverrunSource = plan.SourceProcrastination
	e := newTestEngine(settings, []plan.Task{task})
	e.activeTaskID = &task.ID

	e.tick()

	require.Equal(t, 2, e.tasks[0].ElapsedSeconds)
	require.Equal(t, 1, e.tasks[0].OverrunSeconds)
	require.Equal(t, 1, e.procUsed)
}

func TestTick_OverrunProportional_SinglePeer_EatsFullDelta(t *testing.T) {
	active := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 1, ElapsedSeconds: 1, Status: plan.StatusActive}
	peer := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 100, Status: plan.StatusPending}
	settings := plan.DefaultSettings()
	settings.OverrunSource = plan.SourceProportional
	e := newTestEngine(settings, []plan.Task{active, peer})
	e.activeTaskID = &active.ID

	e.tick()

	require.Equal(t, 0, e.procUsed, "proportional overrun never touches the procrastination bucket")
	require.Equal(t, 99, e.tasks[1].AllocatedSeconds, "the lone peer absorbs the whole one-second delta")
}

func TestTick_OverrunProportional_SplitAcrossPeers_FlooringUnderdistributes(t *testing.T) {
	// GIVEN: two peers sharing a one-second overrun delta — each peer's
	// floor(delta*remaining/total) share floors to zero since neither
	// holds the whole remaining pool. Documented in spec.md §9 as
	// accepted under-distribution, not a bug.
	active := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 1, ElapsedSeconds: 1, Status: plan.StatusActive}
	peerA := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 100, Status: plan.StatusPending}
	peerB := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 300, Status: plan.StatusPending}
	settings := plan.DefaultSettings()
	settings.OverrunSource = plan.SourceProportional
	e := newTestEngine(settings, []plan.Task{active, peerA, peerB})
	e.activeTaskID = &active.ID

	e.tick()

	require.Equal(t, 100, e.tasks[1].AllocatedSeconds)
	require.Equal(t, 300, e.tasks[2].AllocatedSeconds)
}

func TestTick_OverrunProportional_NoPeerHeadroom_Underdistributes(t *testing.T) {
	active := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 1, ElapsedSeconds: 1, Status: plan.StatusActive}
	settings := plan.DefaultSettings()
	settings.OverrunSource = plan.SourceProportional
	e := newTestEngine(settings, []plan.Task{active})
	e.activeTaskID = &active.ID

	require.NotPanics(t, func() { e.tick() })
	require.Equal(t, 1, e.tasks[0].OverrunSeconds)
}

func TestTick_TerminalActiveTask_ClearsAndCountsProcrastination(t *testing.T) {
	task := plan.Task{ID: plan.NewTaskID(), AllocatedSeconds: 300, Status: plan.StatusCompleted}
	e := newTestEngine(plan.DefaultSettings(), []plan.Task{task})
	e.activeTaskID = &task.ID

	e.tick()

	require.Nil(t, e.activeTaskID)
	require.Equal(t, 1, e.procUsed)
}

func TestCarryOverTask_ThenFlush_DoesNotRevertCarriedOverInTheStore(t *testing.T) {
	// GIVEN: CopyTaskToDate marks the source row carried_over=true in the
	// store, but the engine's in-memory mirror only reflects that if
	// CarryOverTask updates it too — otherwise the very next periodic
	// flush's unconditional SaveTask would overwrite it back to false.
	ctx := context.Background()
	store := memory.New()
	dp, err := store.GetOrCreateDayPlan(ctx, "u1", "2026-07-31")
	require.NoError(t, err)

	task := plan.Task{ID: plan.NewTaskID(), PlanID: dp.ID, Name: "Write report", AllocatedSeconds: 600, Status: plan.StatusPending}
	require.NoError(t, store.SaveTask(ctx, task))

	e := New(store, stubClock{now: time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)}, zap.NewNop().Sugar(), "u1", 10, nil)
	require.NoError(t, e.Load(ctx))

	require.NoError(t, e.CarryOverTask(ctx, task.ID, "2026-08-01"))
	e.flush(ctx)

	got, err := store.GetDayPlan(ctx, "u1", "2026-07-31")
	require.NoError(t, err)
	require.True(t, got.Tasks[0].CarriedOver, "flush must not revert carried_over back to false")
}
