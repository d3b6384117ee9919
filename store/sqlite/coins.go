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

func (s *Store) GetCoinBalance(ctx context.Context, userID string) (*plan.CoinBalance, error) {
	s.mu.RLock()
	row := s.db.QueryRowContext(ctx, `SELECT user_id, balance, streak FROM coin_balance WHERE user_id = ?`, userID)
	var cb plan.CoinBalance
	err := row.Scan(&cb.UserID, &cb.Balance, &cb.Streak)
	s.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		return &plan.CoinBalance{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coin balance: %w", err)
	}
	return &cb, nil
}

// AppendTransaction writes one append-only ledger row and updates the
// single coin_balance row in the same transaction — the "single atomic
// transaction per credit or debit" required by spec.md §5.
func (s *Store) AppendTransaction(ctx context.Context, userID string, t plan.CoinTransaction, newBalance int64, newStreak *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id := t.ID
	if id == "" {
		id = uuid.New().String()
	}
	var taskID, planDate, rewardID interface{}
	if t.TaskID != nil {
		taskID = t.TaskID.String()
	}
	if t.PlanDate != nil {
		planDate = *t.PlanDate
	}
	if t.RewardID != nil {
		rewardID = *t.RewardID
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO coin_transactions (id, user_id, created_at, amount, reason, task_id, plan_date, reward_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, t.CreatedAt.Format(time.RFC3339), t.Amount, t.Reason, taskID, planDate, rewardID); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	if newStreak != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO coin_balance (user_id, balance, streak) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET balance=excluded.balance, streak=excluded.streak`,
			userID, newBalance, *newStreak); err != nil {
			return fmt.Errorf("update balance+streak: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO coin_balance (user_id, balance, streak) VALUES (?, ?, 0)
			 ON CONFLICT(user_id) DO UPDATE SET balance=excluded.balance`,
			userID, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
	}

	return tx.Commit()
}

func (s *Store) SetStreak(ctx context.Context, userID string, streak int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO coin_balance (user_id, balance, streak) VALUES (?, 0, ?)
		 ON CONFLICT(user_id) DO UPDATE SET streak=excluded.streak`, userID, streak)
	return err
}

func (s *Store) GetReward(ctx context.Context, id string) (*plan.Reward, error) {
	s.mu.RLock()
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, reward_type, remaining_count, initial_count, is_active, created_at
		 FROM rewards WHERE id = ?`, id)

	var r plan.Reward
	var remaining, initial sql.NullInt64
	var createdAt string
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Price, &r.RewardType, &remaining, &initial, &r.IsActive, &createdAt)
	s.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reward: %w", err)
	}
	if remaining.Valid {
		v := int(remaining.Int64)
		r.RemainingCount = &v
	}
	if initial.Valid {
		v := int(initial.Int64)
		r.InitialCount = &v
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		r.CreatedAt = ts
	}
	return &r, nil
}

func (s *Store) DecrementRewardStock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE rewards SET remaining_count = remaining_count - 1
		 WHERE id = ? AND remaining_count IS NOT NULL AND remaining_count > 0`, id)
	return err
}

// PurchaseReward decrements Limited stock, re-reads the authoritative
// balance, and appends the debit transaction, all inside one BeginTx/
// Commit — closing the TOCTOU window a separate GetReward/GetCoinBalance
// pre-check plus AppendTransaction/DecrementRewardStock pair would leave
// open between two concurrent purchases of the same reward.
func (s *Store) PurchaseReward(ctx context.Context, userID string, reward plan.Reward, t plan.CoinTransaction) (*plan.CoinTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if reward.RewardType == plan.RewardLimited {
		res, err := tx.ExecContext(ctx,
			`UPDATE rewards SET remaining_count = remaining_count - 1
			 WHERE id = ? AND remaining_count IS NOT NULL AND remaining_count > 0`, reward.ID)
		if err != nil {
			return nil, fmt.Errorf("decrement reward stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("decrement reward stock: %w", err)
		}
		if n == 0 {
			return nil, &plan.PurchaseError{RewardID: reward.ID, Reason: "sold out"}
		}
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM coin_balance WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get coin balance: %w", err)
	}
	price := -t.Amount
	if balance < price {
		return nil, &plan.PurchaseError{RewardID: reward.ID, Reason: "insufficient"}
	}
	newBalance := balance - price

	id := t.ID
	if id == "" {
		id = uuid.New().String()
	}
	t.ID = id
	var taskID, planDate, rewardID interface{}
	if t.TaskID != nil {
		taskID = t.TaskID.String()
	}
	if t.PlanDate != nil {
		planDate = *t.PlanDate
	}
	if t.RewardID != nil {
		rewardID = *t.RewardID
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO coin_transactions (id, user_id, created_at, amount, reason, task_id, plan_date, reward_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, t.CreatedAt.Format(time.RFC3339), t.Amount, t.Reason, taskID, planDate, rewardID); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO coin_balance (user_id, balance, streak) VALUES (?, ?, 0)
		 ON CONFLICT(user_id) DO UPDATE SET balance=excluded.balance`,
		userID, newBalance); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &t, nil
}
