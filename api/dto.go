/*
Package api's dto.go defines the JSON request/response contract, the way
the teacher's dto.go decouples the wire shape from the domain model.
*/
package api

import "github.com/kvaranth/dayclock/plan"

// AddTaskRequest is the body for POST /api/tasks.
type AddTaskRequest struct {
	Name             string `json:"name"`
	AllocatedSeconds int    `json:"allocated_seconds"`
	ScheduledTime    string `json:"scheduled_time,omitempty"`
	Priority         string `json:"priority,omitempty"`
}

// UpdateTaskRequest is the body for PUT /api/tasks/{id}.
type UpdateTaskRequest struct {
	Name             string `json:"name"`
	AllocatedSeconds int    `json:"allocated_seconds"`
	ScheduledTime    string `json:"scheduled_time,omitempty"`
	Priority         string `json:"priority,omitempty"`
}

// CarryOverRequest is the body for POST /api/tasks/{id}/carry-over.
type CarryOverRequest struct {
	TargetDate string `json:"target_date"`
}

// TaskDTO is the wire shape of a task.
type TaskDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	AllocatedSeconds int    `json:"allocated_seconds"`
	ElapsedSeconds   int    `json:"elapsed_seconds"`
	OverrunSeconds   int    `json:"overrun_seconds"`
	Status           string `json:"status"`
	ScheduledTime    string `json:"scheduled_time,omitempty"`
	Priority         string `json:"priority"`
	CompletedAt      string `json:"completed_at,omitempty"`
}

func toTaskDTO(t plan.TaskSnapshot) TaskDTO {
	dto := TaskDTO{
		ID:               t.ID.String(),
		Name:             t.Name,
		AllocatedSeconds: t.AllocatedSeconds,
		ElapsedSeconds:   t.ElapsedSeconds,
		OverrunSeconds:   t.OverrunSeconds,
		Status:           string(t.Status),
		ScheduledTime:    t.ScheduledTime,
		Priority:         string(t.Priority),
	}
	if t.CompletedAt != nil {
		dto.CompletedAt = *t.CompletedAt
	}
	return dto
}

// SnapshotDTO is the wire shape of the engine's read-only projection.
type SnapshotDTO struct {
	Date                   string    `json:"date"`
	Tasks                  []TaskDTO `json:"tasks"`
	ActiveTaskID           string    `json:"active_task_id,omitempty"`
	ProcrastinationUsed    int       `json:"procrastination_used"`
	ProcrastinationRemain  int       `json:"procrastination_remain"`
	ProcrastinationOverrun int       `json:"procrastination_overrun"`
	CarryOverCandidates    []string  `json:"carry_over_candidates,omitempty"`
}

func toSnapshotDTO(s plan.Snapshot) SnapshotDTO {
	dto := SnapshotDTO{
		Date:                   s.Date,
		ProcrastinationUsed:    s.ProcrastinationUsed,
		ProcrastinationRemain:  s.ProcrastinationRemain,
		ProcrastinationOverrun: s.ProcrastinationOverrun,
	}
	for _, t := range s.Tasks {
		dto.Tasks = append(dto.Tasks, toTaskDTO(t))
	}
	if s.ActiveTaskID != nil {
		dto.ActiveTaskID = s.ActiveTaskID.String()
	}
	for _, id := range s.CarryOverCandidates {
		dto.CarryOverCandidates = append(dto.CarryOverCandidates, id.String())
	}
	return dto
}

// PreviewDTO is the wire shape of a day's gamification preview.
type PreviewDTO struct {
	Earned         int     `json:"earned"`
	Potential      int     `json:"potential"`
	Penalties      int     `json:"penalties"`
	TotalEarned    int     `json:"total_earned"`
	TotalPotential int     `json:"total_potential"`
	Multiplier     float64 `json:"multiplier"`
	Streak         int     `json:"streak"`
}

func toPreviewDTO(p plan.DayPreview) PreviewDTO {
	return PreviewDTO{
		Earned:         p.Earned,
		Potential:      p.Potential,
		Penalties:      p.Penalties,
		TotalEarned:    p.TotalEarned,
		TotalPotential: p.TotalPotential,
		Multiplier:     p.Multiplier,
		Streak:         p.Streak,
	}
}

// BalanceDTO is the wire shape of a coin balance.
type BalanceDTO struct {
	Balance int64 `json:"balance"`
	Streak  int   `json:"streak"`
}

// TransactionDTO is the wire shape of one ledger entry.
type TransactionDTO struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	TaskID    string `json:"task_id,omitempty"`
	PlanDate  string `json:"plan_date,omitempty"`
	RewardID  string `json:"reward_id,omitempty"`
}

func toTransactionDTO(t plan.CoinTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:        t.ID,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Amount:    t.Amount,
		Reason:    t.Reason,
	}
	if t.TaskID != nil {
		dto.TaskID = t.TaskID.String()
	}
	if t.PlanDate != nil {
		dto.PlanDate = *t.PlanDate
	}
	if t.RewardID != nil {
		dto.RewardID = *t.RewardID
	}
	return dto
}

// RewardDTO is the wire shape of a shop reward.
type RewardDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	RewardType     string `json:"reward_type"`
	RemainingCount *int   `json:"remaining_count,omitempty"`
	IsActive       bool   `json:"is_active"`
}

func toRewardDTO(r plan.Reward) RewardDTO {
	return RewardDTO{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		RewardType:     string(r.RewardType),
		RemainingCount: r.RemainingCount,
		IsActive:       r.IsActive,
	}
}

// SettingsDTO is the wire shape of user settings.
type SettingsDTO struct {
	OverrunBehavior      string `json:"overrun_behavior"`
	OverrunSource        string `json:"overrun_source"`
	NotifyBeforeMinutes  int    `json:"notify_before_minutes"`
	GamificationEnabled  bool   `json:"gamification_enabled"`
	AllowNegativeBalance bool   `json:"allow_negative_balance"`
	Theme                string `json:"theme"`
}

func toSettingsDTO(s plan.Settings) SettingsDTO {
	return SettingsDTO{
		OverrunBehavior:      string(s.OverrunBehavior),
		OverrunSource:        string(s.OverrunSource),
		NotifyBeforeMinutes:  s.NotifyBeforeMinutes,
		GamificationEnabled:  s.GamificationEnabled,
		AllowNegativeBalance: s.AllowNegativeBalance,
		Theme:                s.Theme,
	}
}

// ErrorResponse is the standard error response, matching the teacher's
// dto.go shape.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
