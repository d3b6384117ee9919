/*
Package sqlite provides a SQLite-backed implementation of plan.Store.

TABLES:
  day_plans         one row per (user_id, date)
  tasks             owned by a day_plan, ordered by position
  settings          one row per user_id (empty string for the desktop
                    single-user variant)
  coin_balance      one row per user_id
  coin_transactions append-only ledger: no UPDATE, no DELETE
  rewards           read by the purchase flow; catalog management is
                    external to this package

WAL MODE:
  Opened with _foreign_keys=on&_journal_mode=WAL, the same as the
  teacher's store, for non-blocking concurrent reads against the engine's
  periodic flush writer.

CONCURRENCY:
  A sync.RWMutex is held exclusively by migrate() and every write, and
  shared by every read; Close() does not take it. Multi-statement writes
  additionally run inside one BeginTx/Commit.
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements plan.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if necessary) the database at dbPath, migrates the
// schema, and seeds the default Settings/Coin Balance rows for userID.
func New(dbPath string, userID string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := s.seed(userID); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema := `
	CREATE TABLE IF NOT EXISTS day_plans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		procrastination_used INTEGER NOT NULL DEFAULT 0,
		day_bonus INTEGER NOT NULL DEFAULT 0,
		day_penalty INTEGER NOT NULL DEFAULT 0,
		day_total INTEGER NOT NULL DEFAULT 0,
		day_finalized BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_day_plans_user_date
		ON day_plans(user_id, date);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL REFERENCES day_plans(id),
		name TEXT NOT NULL,
		allocated_seconds INTEGER NOT NULL,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		overrun_seconds INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		scheduled_time TEXT,
		position INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL DEFAULT 'normal',
		coins_earned INTEGER NOT NULL DEFAULT 0,
		coins_penalty INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		carried_over BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_plan_position ON tasks(plan_id, position);

	CREATE TABLE IF NOT EXISTS settings (
		user_id TEXT PRIMARY KEY DEFAULT '',
		overrun_behavior TEXT NOT NULL DEFAULT 'continue',
		overrun_source TEXT NOT NULL DEFAULT 'procrastination',
		procrastination_override_min INTEGER,
		notify_before_minutes INTEGER NOT NULL DEFAULT 5,
		gamification_enabled BOOLEAN NOT NULL DEFAULT 1,
		base_bonus INTEGER NOT NULL DEFAULT 1,
		base_penalty INTEGER NOT NULL DEFAULT 1,
		allow_negative_balance BOOLEAN NOT NULL DEFAULT 0,
		theme TEXT NOT NULL DEFAULT 'default'
	);

	CREATE TABLE IF NOT EXISTS coin_balance (
		user_id TEXT PRIMARY KEY DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0,
		streak INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS coin_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL,
		task_id TEXT,
		plan_date TEXT,
		reward_id TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_coin_transactions_user_created
		ON coin_transactions(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS rewards (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL,
		reward_type TEXT NOT NULL DEFAULT 'single',
		remaining_count INTEGER,
		initial_count INTEGER,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) seed(userID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO settings (user_id, overrun_behavior, overrun_source, notify_before_minutes, gamification_enabled, base_bonus, base_penalty, allow_negative_balance, theme) VALUES (?, 'continue', 'procrastination', 5, 1, 1, 1, 0, 'default')`, userID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT OR IGNORE INTO coin_balance (user_id, balance, streak) VALUES (?, 0, 0)`, userID)
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
