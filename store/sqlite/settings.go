package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvaranth/dayclock/plan"
)

func (s *Store) GetSettings(ctx context.Context, userID string) (*plan.Settings, error) {
	s.mu.RLock()
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, overrun_behavior, overrun_source, procrastination_override_min, notify_before_minutes,
		        gamification_enabled, base_bonus, base_penalty, allow_negative_balance, theme
		 FROM settings WHERE user_id = ?`, userID)

	var st plan.Settings
	var override sql.NullInt64
	err := row.Scan(&st.UserID, &st.OverrunBehavior, &st.OverrunSource, &override, &st.NotifyBeforeMinutes,
		&st.GamificationEnabled, &st.BaseBonus, &st.BasePenalty, &st.AllowNegativeBalance, &st.Theme)
	s.mu.RUnlock()
	if errors.Is(err, sql.ErrNoRows) {
		def := plan.DefaultSettings()
		def.UserID = userID
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if override.Valid {
		m := int(override.Int64)
		st.ProcrastinationOverrideMinutes = &m
	}
	return &st, nil
}

func (s *Store) SaveSettings(ctx context.Context, st plan.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var override interface{}
	if st.ProcrastinationOverrideMinutes != nil {
		override = *st.ProcrastinationOverrideMinutes
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (user_id, overrun_behavior, overrun_source, procrastination_override_min,
		                        notify_before_minutes, gamification_enabled, base_bonus, base_penalty,
		                        allow_negative_balance, theme)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   overrun_behavior=excluded.overrun_behavior, overrun_source=excluded.overrun_source,
		   procrastination_override_min=excluded.procrastination_override_min,
		   notify_before_minutes=excluded.notify_before_minutes,
		   gamification_enabled=excluded.gamification_enabled, base_bonus=excluded.base_bonus,
		   base_penalty=excluded.base_penalty, allow_negative_balance=excluded.allow_negative_balance,
		   theme=excluded.theme`,
		st.UserID, st.OverrunBehavior, st.OverrunSource, override, st.NotifyBeforeMinutes,
		st.GamificationEnabled, st.BaseBonus, st.BasePenalty, st.AllowNegativeBalance, st.Theme)
	return err
}
