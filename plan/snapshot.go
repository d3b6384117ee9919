package plan

// TaskSnapshot is the read-only projection of one task for UI/API
// consumers (spec.md §6.3).
type TaskSnapshot struct {
	ID               TaskID     `json:"id"`
	Name             string     `json:"name"`
	AllocatedSeconds int        `json:"allocated_seconds"`
	ElapsedSeconds   int        `json:"elapsed_seconds"`
	OverrunSeconds   int        `json:"overrun_seconds"`
	Status           TaskStatus `json:"status"`
	ScheduledTime    string     `json:"scheduled_time,omitempty"`
	CompletedAt      *string    `json:"completed_at,omitempty"`
	Priority         Priority   `json:"priority"`
}

// Snapshot is the immutable projection of the engine's current state.
type Snapshot struct {
	Date                   string          `json:"date"`
	Tasks                  []TaskSnapshot  `json:"tasks"`
	ActiveTaskID           *TaskID         `json:"active_task_id,omitempty"`
	ProcrastinationUsed    int             `json:"procrastination_used"`
	ProcrastinationRemain  int             `json:"procrastination_remaining"`
	ProcrastinationOverrun int             `json:"procrastination_overrun"`
	CarryOverCandidates    []TaskID        `json:"carry_over_candidates,omitempty"`
}

// DayPreview is the non-mutating gamification forecast for a day in
// progress (spec.md §4.3).
type DayPreview struct {
	Earned        int     `json:"earned"`
	Potential     int     `json:"potential"`
	Penalties     int     `json:"penalties"`
	TotalEarned   int     `json:"total_earned"`
	TotalPotential int    `json:"total_potential"`
	Multiplier    float64 `json:"multiplier"`
	Streak        int     `json:"streak"`
}

// FinalizeResult reports the outcome of one Day Finalizer run.
type FinalizeResult struct {
	Bonus        int
	Penalty      int
	Multiplier   float64
	Total        int
	NewStreak    int
	StreakBroken bool
}
