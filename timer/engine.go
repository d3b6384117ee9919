/*
Package timer implements the Timer Engine (spec.md §4.1): the always-on
per-second "chess-clock" tick loop, task state transitions, overrun
accounting, proportional reallocation and periodic durable flush.

The background worker shape — ticker + goroutine + stop channel +
WaitGroup + mutex — mirrors the teacher's ReconciliationScheduler
(api/scheduler.go), generalized from a once-an-hour reconciliation sweep
to a once-a-second accounting tick.
*/
package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/metrics"
	"github.com/kvaranth/dayclock/plan"
)

// DefaultSaveInterval is the number of ticks between durable flushes
// (spec.md §4.1 default 10).
const DefaultSaveInterval = 10

// Engine owns the authoritative, second-resolution accounting for exactly
// one Day Plan — today's.
type Engine struct {
	store  plan.Store
	clock  plan.Clock
	logger *zap.SugaredLogger

	onTick func()

	userID       string
	saveInterval int

	mu           sync.Mutex
	planID       string
	date         string
	tasks        []plan.Task // ordered by Position
	activeTaskID *plan.TaskID
	procUsed     int
	settings     plan.Settings

	tickCount int

	running bool
	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs an Engine over today's Day Plan. Callers must call Load
// before Start. saveInterval <= 0 falls back to DefaultSaveInterval.
func New(store plan.Store, clock plan.Clock, logger *zap.SugaredLogger, userID string, saveInterval int, onTick func()) *Engine {
	if saveInterval <= 0 {
		saveInterval = DefaultSaveInterval
	}
	return &Engine{
		store:        store,
		clock:        clock,
		logger:       logger,
		userID:       userID,
		saveInterval: saveInterval,
		onTick:       onTick,
	}
}

// Load pulls today's Day Plan and Settings into the in-memory mirror.
func (e *Engine) Load(ctx context.Context) error {
	date := e.clock.Now().Format("2006-01-02")

	dp, err := e.store.GetOrCreateDayPlan(ctx, e.userID, date)
	if err != nil {
		return err
	}
	settings, err := e.store.GetSettings(ctx, e.userID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.planID = dp.ID
	e.date = date
	e.tasks = dp.Tasks
	e.procUsed = dp.ProcrastinationUsed
	e.settings = *settings
	return nil
}

// Start begins the tick loop. Idempotent while already running.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(1 * time.Second)
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(1)
	go e.loop()
}

// Stop requests termination and flushes pending state before returning.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()
	e.flush(ctx)
}

func (e *Engine) loop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ticker.C:
			e.mu.Lock()
			e.tick()
			e.tickCount++
			shouldFlush := e.tickCount%e.saveInterval == 0
			e.mu.Unlock()
			metrics.Ticks.Inc()

			if shouldFlush {
				e.flush(context.Background())
			}
			if e.onTick != nil {
				e.onTick()
			}
		case <-e.stopCh:
			return
		}
	}
}

// tick runs the per-second accounting algorithm. Caller must hold mu.
func (e *Engine) tick() {
	active := e.findActive()

	if active == nil || active.Status.IsTerminal() {
		e.procUsed++
		e.activeTaskID = nil
		return
	}

	active.ElapsedSeconds++

	if active.ElapsedSeconds > active.AllocatedSeconds {
		if e.settings.OverrunBehavior == plan.OverrunStop {
			active.ElapsedSeconds--
			e.activeTaskID = nil
			e.procUsed++
			e.writeTask(*active)
			return
		}

		prevOverrun := active.OverrunSeconds
		newOverrun := active.ElapsedSeconds - active.AllocatedSeconds
		active.OverrunSeconds = newOverrun
		delta := newOverrun - prevOverrun

		switch e.settings.OverrunSource {
		case plan.SourceProcrastination:
			e.procUsed += delta
		case plan.SourceProportional:
			e.eatProportional(delta)
		}
	}

	e.writeTask(*active)
}

// eatProportional distributes delta seconds of overrun across peer
// non-terminal tasks, weighted by remaining headroom, floored. Under-
// distribution from flooring is accepted, per spec.md §9.
func (e *Engine) eatProportional(delta int) {
	type peer struct {
		idx       int
		remaining int
	}
	var peers []peer
	total := 0
	for i := range e.tasks {
		t := &e.tasks[i]
		if e.activeTaskID != nil && t.ID == *e.activeTaskID {
			continue
		}
		if t.Status.IsTerminal() {
			continue
		}
		r := t.RemainingSeconds()
		if r <= 0 {
			continue
		}
		peers = append(peers, peer{idx: i, remaining: r})
		total += r
	}
	if len(peers) == 0 || total == 0 {
		return
	}
	for _, p := range peers {
		share := delta * p.remaining / total
		t := &e.tasks[p.idx]
		t.AllocatedSeconds -= share
		if t.AllocatedSeconds < 0 {
			t.AllocatedSeconds = 0
		}
	}
}

func (e *Engine) findActive() *plan.Task {
	if e.activeTaskID == nil {
		return nil
	}
	for i := range e.tasks {
		if e.tasks[i].ID == *e.activeTaskID {
			return &e.tasks[i]
		}
	}
	return nil
}

func (e *Engine) writeTask(t plan.Task) {
	for i := range e.tasks {
		if e.tasks[i].ID == t.ID {
			e.tasks[i] = t
			return
		}
	}
}

// flush writes procrastination_used and every task's mutable fields to
// the store. Failures are logged, never propagated — the in-memory state
// remains truth (spec.md §4.1/§7).
func (e *Engine) flush(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.FlushDuration.Observe(time.Since(start).Seconds()) }()

	e.mu.Lock()
	planID := e.planID
	procUsed := e.procUsed
	tasks := make([]plan.Task, len(e.tasks))
	copy(tasks, e.tasks)
	e.mu.Unlock()

	if err := e.store.SaveDayPlanTotals(ctx, planID, procUsed); err != nil {
		e.logger.Warnw("flush: failed to save day plan totals", "plan_id", planID, "error", err)
	}
	for _, t := range tasks {
		if err := e.store.SaveTask(ctx, t); err != nil {
			e.logger.Warnw("flush: failed to save task", "task_id", t.ID, "error", err)
		}
	}
}
