/*
Package plan defines the core data model shared by the timer engine, the
gamification engine, the plan validator and the store: Day Plans, Tasks,
Settings, Coin Balance, Coin Transactions and Rewards.

Enums are tagged string variants rather than bare ints or free strings, so
persisted values stay forward-compatible short codes ("pending",
"completed", ...) instead of opaque ordinals.
*/
package plan

import (
	"time"

	"github.com/google/uuid"
)

// TaskID is an opaque 128-bit identifier generated at task creation.
type TaskID uuid.UUID

func NewTaskID() TaskID { return TaskID(uuid.New()) }

func (id TaskID) String() string { return uuid.UUID(id).String() }

func ParseTaskID(s string) (TaskID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TaskID{}, err
	}
	return TaskID(u), nil
}

// TaskStatus is the task lifecycle state. Terminal statuses are absorbing.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusActive    TaskStatus = "active"
	StatusCompleted TaskStatus = "completed"
	StatusSkipped   TaskStatus = "skipped"
)

func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// Priority determines base-cost rate and whether a task participates in
// gamification at all (Low never earns or costs coins).
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// NormalizePriority maps the empty/unknown value to Normal, per the
// invariant that priority is never null in flight.
func NormalizePriority(p Priority) Priority {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return p
	}
	return PriorityNormal
}

// OverrunBehavior governs what happens when a task's elapsed time exceeds
// its allocation.
type OverrunBehavior string

const (
	OverrunContinue OverrunBehavior = "continue"
	OverrunStop     OverrunBehavior = "stop"
)

// OverrunSource governs which budget absorbs overrun seconds when
// OverrunBehavior is Continue.
type OverrunSource string

const (
	SourceProcrastination OverrunSource = "procrastination"
	SourceProportional    OverrunSource = "proportional"
)

// RewardType governs stock semantics for a shop reward.
type RewardType string

const (
	RewardSingle       RewardType = "single"
	RewardLimited      RewardType = "limited"
	RewardSubscription RewardType = "subscription"
)

// Task is one item on a Day Plan.
type Task struct {
	ID               TaskID
	PlanID           string
	Name             string
	AllocatedSeconds int
	ElapsedSeconds   int
	OverrunSeconds   int
	Status           TaskStatus
	ScheduledTime    string // "HH:MM", optional
	Position         int
	Priority         Priority
	CoinsEarned      int
	CoinsPenalty     int
	CreatedAt        time.Time
	CompletedAt      *time.Time
	CarriedOver      bool
}

// EffectiveSeconds is elapsed time for terminal tasks, allocated time
// otherwise — the definition used by ProcrastinationLimit (spec.md §9
// Open Question, resolved in favor of the effective-time variant).
func (t Task) EffectiveSeconds() int {
	if t.Status.IsTerminal() {
		return t.ElapsedSeconds
	}
	return t.AllocatedSeconds
}

// RemainingSeconds is non-negative allocation headroom, used to weight
// proportional reallocation among peer tasks.
func (t Task) RemainingSeconds() int {
	r := t.AllocatedSeconds - t.ElapsedSeconds
	if r < 0 {
		return 0
	}
	return r
}

// DayPlan owns an ordered sequence of Tasks for one calendar date.
type DayPlan struct {
	ID                  string
	UserID              string // optional; empty for the single-user desktop variant
	Date                string // "2006-01-02"
	ProcrastinationUsed int
	DayBonus            int
	DayPenalty          int
	DayTotal            int
	DayFinalized        bool
	Tasks               []Task
}

// TotalAllocated sums allocated_seconds over non-terminal tasks.
func (p DayPlan) TotalAllocated() int {
	total := 0
	for _, t := range p.Tasks {
		if !t.Status.IsTerminal() {
			total += t.AllocatedSeconds
		}
	}
	return total
}

// TotalEffective sums EffectiveSeconds over every task.
func (p DayPlan) TotalEffective() int {
	total := 0
	for _, t := range p.Tasks {
		total += t.EffectiveSeconds()
	}
	return total
}

// Settings holds the one record per user (or the single global record for
// the desktop variant — UserID stays optional in the schema).
type Settings struct {
	UserID                         string
	OverrunBehavior                OverrunBehavior
	OverrunSource                  OverrunSource
	ProcrastinationOverrideMinutes *int
	NotifyBeforeMinutes            int
	GamificationEnabled            bool
	BaseBonus                      int
	BasePenalty                    int
	AllowNegativeBalance           bool
	Theme                          string
}

// DefaultSettings mirrors the teacher's seed-on-first-run convention.
func DefaultSettings() Settings {
	return Settings{
		OverrunBehavior:      OverrunContinue,
		OverrunSource:        SourceProcrastination,
		NotifyBeforeMinutes:  5,
		GamificationEnabled:  true,
		BaseBonus:            1,
		BasePenalty:          1,
		AllowNegativeBalance: false,
		Theme:                "default",
	}
}

// CoinBalance is the single per-user running total and streak counter.
type CoinBalance struct {
	UserID  string
	Balance int64
	Streak  int
}

// CoinTransaction is one append-only ledger entry. Never updated or
// deleted once written.
type CoinTransaction struct {
	ID        string
	CreatedAt time.Time
	Amount    int64 // signed; positive = credit
	Reason    string
	TaskID    *TaskID
	PlanDate  *string
	RewardID  *string
}

// Reward is a shop catalog entry. The core only consumes the catalog
// (validate + execute purchases); creating/editing rewards is external.
type Reward struct {
	ID             string
	Name           string
	Description    string
	Price          int64
	RewardType     RewardType
	RemainingCount *int
	InitialCount   *int
	IsActive       bool
	CreatedAt      time.Time
}
