package timer

import (
	"context"
	"time"

	"github.com/kvaranth/dayclock/plan"
)

const secondsInDay = 86400

// AddTask inserts a Pending task into the in-memory state. Fails with
// InvalidArgument on a non-positive allocation or empty name.
func (e *Engine) AddTask(name string, allocatedSeconds int, scheduledTime string, priority plan.Priority) (*plan.Task, error) {
	if name == "" {
		return nil, &plan.ValidationError{Field: "name", Message: "must not be empty"}
	}
	if allocatedSeconds <= 0 {
		return nil, &plan.ValidationError{Field: "allocated_seconds", Message: "must be positive"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t := plan.Task{
		ID:               plan.NewTaskID(),
		PlanID:           e.planID,
		Name:             name,
		AllocatedSeconds: allocatedSeconds,
		Status:           plan.StatusPending,
		ScheduledTime:    scheduledTime,
		Position:         len(e.tasks),
		Priority:         plan.NormalizePriority(priority),
		CreatedAt:        e.clock.Now(),
	}
	e.tasks = append(e.tasks, t)
	return &t, nil
}

// RemoveTask removes a task from in-memory state, deactivating it first
// if it was active. Unknown ids are silently ignored.
func (e *Engine) RemoveTask(id plan.TaskID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, t := range e.tasks {
		if t.ID == id {
			if e.activeTaskID != nil && *e.activeTaskID == id {
				e.activeTaskID = nil
			}
			e.tasks = append(e.tasks[:i], e.tasks[i+1:]...)
			return
		}
	}
}

// UpdateTaskMeta mutates non-time fields; it never touches elapsed_seconds.
// Unknown ids are silently ignored.
func (e *Engine) UpdateTaskMeta(id plan.TaskID, name string, allocatedSeconds int, scheduledTime string, priority plan.Priority) error {
	if name != "" && allocatedSeconds < 0 {
		return &plan.ValidationError{Field: "allocated_seconds", Message: "must not be negative"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.tasks {
		if e.tasks[i].ID == id {
			if name != "" {
				e.tasks[i].Name = name
			}
			if allocatedSeconds > 0 {
				e.tasks[i].AllocatedSeconds = allocatedSeconds
			}
			e.tasks[i].ScheduledTime = scheduledTime
			e.tasks[i].Priority = plan.NormalizePriority(priority)
			return nil
		}
	}
	return nil
}

// ActivateTask deactivates any currently active task, then activates the
// target iff it is still Pending. Re-activating an already-terminal task
// is a no-op (spec.md §9 Open Question, resolved in favor of no-op).
// Unknown ids are silently ignored.
func (e *Engine) ActivateTask(id plan.TaskID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activeTaskID != nil {
		e.revertActive()
	}

	for i := range e.tasks {
		if e.tasks[i].ID == id {
			if e.tasks[i].Status == plan.StatusPending {
				e.tasks[i].Status = plan.StatusActive
			}
			if !e.tasks[i].Status.IsTerminal() {
				e.activeTaskID = &e.tasks[i].ID
			}
			return
		}
	}
}

// Deactivate clears active_task_id; the formerly active task reverts
// Active→Pending.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revertActive()
}

// revertActive reverts the currently active task to Pending and clears
// active_task_id. Caller must hold mu.
func (e *Engine) revertActive() {
	if e.activeTaskID == nil {
		return
	}
	for i := range e.tasks {
		if e.tasks[i].ID == *e.activeTaskID {
			if e.tasks[i].Status == plan.StatusActive {
				e.tasks[i].Status = plan.StatusPending
			}
			break
		}
	}
	e.activeTaskID = nil
}

// CompleteTask sets a terminal Completed status and completed_at=now,
// deactivating it first if it was active, then flushes to the store
// before returning.
// Unknown ids are silently ignored.
func (e *Engine) CompleteTask(ctx context.Context, id plan.TaskID) {
	e.finishTask(id, plan.StatusCompleted)
	e.flush(ctx)
}

// SkipTask sets a terminal Skipped status, mirroring CompleteTask.
func (e *Engine) SkipTask(ctx context.Context, id plan.TaskID) {
	e.finishTask(id, plan.StatusSkipped)
	e.flush(ctx)
}

func (e *Engine) finishTask(id plan.TaskID, status plan.TaskStatus) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.tasks {
		if e.tasks[i].ID == id {
			now := e.clock.Now()
			e.tasks[i].Status = status
			e.tasks[i].CompletedAt = &now
			if e.activeTaskID != nil && *e.activeTaskID == id {
				e.activeTaskID = nil
			}
			return
		}
	}
}

// ProcrastinationRemaining is max(0, seconds_until_midnight - Σ allocated
// over non-terminal tasks).
func (e *Engine) ProcrastinationRemaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.procrastinationRemainLocked()
}

// ProcrastinationLimit returns override*60 when set, else
// max(0, 86400 - Σ effective_time) — the effective-time resolution of
// spec.md §9's Open Question.
func (e *Engine) ProcrastinationLimit() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.procrastinationLimitLocked()
}

func (e *Engine) procrastinationLimitLocked() int {
	if e.settings.ProcrastinationOverrideMinutes != nil {
		return *e.settings.ProcrastinationOverrideMinutes * 60
	}
	total := 0
	for _, t := range e.tasks {
		total += t.EffectiveSeconds()
	}
	r := secondsInDay - total
	if r < 0 {
		return 0
	}
	return r
}

// ProcrastinationOverrun is max(0, procrastination_used - limit).
func (e *Engine) ProcrastinationOverrun() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.procUsed - e.procrastinationLimitLocked()
	if r < 0 {
		return 0
	}
	return r
}

func secondsUntilMidnight(now time.Time) int {
	elapsed := now.Hour()*3600 + now.Minute()*60 + now.Second()
	return secondsInDay - elapsed
}

// Snapshot returns the immutable read-only projection of engine state
// (spec.md §6.3).
func (e *Engine) Snapshot() plan.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := plan.Snapshot{
		Date:                   e.date,
		ActiveTaskID:           e.activeTaskID,
		ProcrastinationUsed:    e.procUsed,
		ProcrastinationRemain:  e.procrastinationRemainLocked(),
		ProcrastinationOverrun: max0(e.procUsed - e.procrastinationLimitLocked()),
	}
	for _, t := range e.tasks {
		ts := plan.TaskSnapshot{
			ID:               t.ID,
			Name:             t.Name,
			AllocatedSeconds: t.AllocatedSeconds,
			ElapsedSeconds:   t.ElapsedSeconds,
			OverrunSeconds:   t.OverrunSeconds,
			Status:           t.Status,
			ScheduledTime:    t.ScheduledTime,
			Priority:         plan.NormalizePriority(t.Priority),
		}
		if t.CompletedAt != nil {
			s := t.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
			ts.CompletedAt = &s
		}
		snap.Tasks = append(snap.Tasks, ts)
		if !t.Status.IsTerminal() && !t.CarriedOver {
			snap.CarryOverCandidates = append(snap.CarryOverCandidates, t.ID)
		}
	}
	return snap
}

func (e *Engine) procrastinationRemainLocked() int {
	total := 0
	for _, t := range e.tasks {
		if !t.Status.IsTerminal() {
			total += t.AllocatedSeconds
		}
	}
	return max0(secondsUntilMidnight(e.clock.Now()) - total)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// CarryOverTask marks the source task carried_over and creates a Pending
// copy on the target date, atomically, per spec.md §4.8/§9. The in-memory
// mirror is updated to match before returning, so the next periodic flush
// doesn't overwrite the store's carried_over=true with a stale false and
// Snapshot().CarryOverCandidates doesn't keep re-offering the task.
func (e *Engine) CarryOverTask(ctx context.Context, id plan.TaskID, targetDate string) error {
	if err := e.store.CopyTaskToDate(ctx, id, e.userID, targetDate); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.tasks {
		if e.tasks[i].ID == id {
			e.tasks[i].CarriedOver = true
			break
		}
	}
	return nil
}

// CarryOverAllCandidates copies every current carry-over candidate
// forward to targetDate. Failures on individual tasks are logged and
// skipped so one bad row never blocks the rest of the sweep.
func (e *Engine) CarryOverAllCandidates(ctx context.Context, targetDate string) error {
	snap := e.Snapshot()
	for _, id := range snap.CarryOverCandidates {
		if err := e.CarryOverTask(ctx, id, targetDate); err != nil {
			e.logger.Warnw("carry-over sweep: failed to copy task", "task_id", id, "error", err)
		}
	}
	return nil
}
