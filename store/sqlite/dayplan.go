package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kvaranth/dayclock/plan"
)

func (s *Store) GetOrCreateDayPlan(ctx context.Context, userID, date string) (*plan.DayPlan, error) {
	dp, err := s.GetDayPlan(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if dp != nil {
		return dp, nil
	}

	s.mu.Lock()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO day_plans (id, user_id, date) VALUES (?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		uuid.New().String(), userID, date)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("create day plan: %w", err)
	}

	// Re-read: either our insert won, or a concurrent writer's did — the
	// unique (user_id, date) index makes re-reading the safe resolution
	// for the race, the same pattern the teacher uses for lazily created
	// rows.
	dp, err = s.GetDayPlan(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if dp == nil {
		return nil, errors.New("day plan missing immediately after insert")
	}
	return dp, nil
}

func (s *Store) GetDayPlan(ctx context.Context, userID, date string) (*plan.DayPlan, error) {
	s.mu.RLock()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, date, procrastination_used, day_bonus, day_penalty, day_total, day_finalized
		 FROM day_plans WHERE user_id = ? AND date = ?`, userID, date)

	var dp plan.DayPlan
	var finalized bool
	err := row.Scan(&dp.ID, &dp.UserID, &dp.Date, &dp.ProcrastinationUsed, &dp.DayBonus, &dp.DayPenalty, &dp.DayTotal, &finalized)
	s.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get day plan: %w", err)
	}
	dp.DayFinalized = finalized

	tasks, err := s.listTasks(ctx, dp.ID)
	if err != nil {
		return nil, err
	}
	dp.Tasks = tasks
	return &dp, nil
}

func (s *Store) listTasks(ctx context.Context, planID string) ([]plan.Task, error) {
	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, plan_id, name, allocated_seconds, elapsed_seconds, overrun_seconds, status,
		        COALESCE(scheduled_time, ''), position, priority, coins_earned, coins_penalty,
		        created_at, completed_at, carried_over
		 FROM tasks WHERE plan_id = ? ORDER BY position ASC`, planID)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []plan.Task
	for rows.Next() {
		var t plan.Task
		var idStr string
		var createdAt string
		var completedAt sql.NullString
		if err := rows.Scan(&idStr, &t.PlanID, &t.Name, &t.AllocatedSeconds, &t.ElapsedSeconds,
			&t.OverrunSeconds, &t.Status, &t.ScheduledTime, &t.Position, &t.Priority,
			&t.CoinsEarned, &t.CoinsPenalty, &createdAt, &completedAt, &t.CarriedOver); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		id, err := plan.ParseTaskID(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse task id: %w", err)
		}
		t.ID = id
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			t.CreatedAt = ts
		}
		if completedAt.Valid {
			if ts, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				t.CompletedAt = &ts
			}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) SaveDayPlanTotals(ctx context.Context, planID string, procrastinationUsed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE day_plans SET procrastination_used = ? WHERE id = ?`, procrastinationUsed, planID)
	return err
}

func (s *Store) FinalizeDayPlan(ctx context.Context, planID string, bonus, penalty, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE day_plans SET day_bonus = ?, day_penalty = ?, day_total = ?, day_finalized = 1 WHERE id = ?`,
		bonus, penalty, total, planID)
	return err
}

func (s *Store) SaveTask(ctx context.Context, t plan.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, plan_id, name, allocated_seconds, elapsed_seconds, overrun_seconds, status,
		                     scheduled_time, position, priority, coins_earned, coins_penalty, created_at,
		                     completed_at, carried_over)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, allocated_seconds=excluded.allocated_seconds,
		   elapsed_seconds=excluded.elapsed_seconds, overrun_seconds=excluded.overrun_seconds,
		   status=excluded.status, scheduled_time=excluded.scheduled_time, position=excluded.position,
		   priority=excluded.priority, coins_earned=excluded.coins_earned, coins_penalty=excluded.coins_penalty,
		   completed_at=excluded.completed_at, carried_over=excluded.carried_over`,
		t.ID.String(), t.PlanID, t.Name, t.AllocatedSeconds, t.ElapsedSeconds, t.OverrunSeconds, t.Status,
		nullString(t.ScheduledTime), t.Position, t.Priority, t.CoinsEarned, t.CoinsPenalty,
		t.CreatedAt.Format(time.RFC3339), nullTime(t.CompletedAt), t.CarriedOver)
	return err
}

func (s *Store) DeleteTask(ctx context.Context, id plan.TaskID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	return err
}

// CopyTaskToDate marks the source task carried_over and creates a Pending
// copy on the target day's plan, in one transaction (spec.md §4.8/§9).
func (s *Store) CopyTaskToDate(ctx context.Context, taskID plan.TaskID, userID, targetDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var name string
	var allocated, position int
	var priority string
	row := tx.QueryRowContext(ctx, `SELECT name, allocated_seconds, position, priority FROM tasks WHERE id = ?`, taskID.String())
	if err := row.Scan(&name, &allocated, &position, &priority); err != nil {
		return fmt.Errorf("load source task: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET carried_over = 1 WHERE id = ?`, taskID.String()); err != nil {
		return fmt.Errorf("mark carried over: %w", err)
	}

	var targetPlanID string
	row = tx.QueryRowContext(ctx, `SELECT id FROM day_plans WHERE user_id = ? AND date = ?`, userID, targetDate)
	if err := row.Scan(&targetPlanID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("load target plan: %w", err)
		}
		targetPlanID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, `INSERT INTO day_plans (id, user_id, date) VALUES (?, ?, ?)`, targetPlanID, userID, targetDate); err != nil {
			return fmt.Errorf("create target plan: %w", err)
		}
	}

	newID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (id, plan_id, name, allocated_seconds, elapsed_seconds, overrun_seconds, status,
		                     position, priority, created_at)
		 VALUES (?, ?, ?, ?, 0, 0, 'pending', ?, ?, ?)`,
		newID, targetPlanID, name, allocated, position, priority, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert carried-over copy: %w", err)
	}

	return tx.Commit()
}
