package plan

import "context"

// Store is the persistence boundary. It never deletes or mutates
// coin_transactions rows (append-only), and every other write is a plain
// upsert, update or delete on the owning row — no history is kept for
// day_plans/tasks beyond
// their current field values, matching spec.md §6.1.
type Store interface {
	// Day plans
	GetOrCreateDayPlan(ctx context.Context, userID, date string) (*DayPlan, error)
	GetDayPlan(ctx context.Context, userID, date string) (*DayPlan, error)
	SaveDayPlanTotals(ctx context.Context, planID string, procrastinationUsed int) error
	FinalizeDayPlan(ctx context.Context, planID string, bonus, penalty, total int) error

	// Tasks
	SaveTask(ctx context.Context, t Task) error
	DeleteTask(ctx context.Context, id TaskID) error

	// Settings
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// Coin balance + ledger
	GetCoinBalance(ctx context.Context, userID string) (*CoinBalance, error)
	AppendTransaction(ctx context.Context, userID string, tx CoinTransaction, newBalance int64, newStreak *int) error
	SetStreak(ctx context.Context, userID string, streak int) error

	// Rewards (read-only from the core's perspective; catalog management
	// is external)
	GetReward(ctx context.Context, id string) (*Reward, error)
	DecrementRewardStock(ctx context.Context, id string) error

	// PurchaseReward executes a reward redemption atomically: the stock
	// decrement (for Limited rewards), the balance debit, and the ledger
	// append all happen inside a single store transaction (spec.md §4.7),
	// so two concurrent purchases racing a one-unit-remaining reward can
	// never both succeed. Returns a *PurchaseError (sold out or
	// insufficient) if the reward or balance state changed between the
	// caller's own pre-check and this call, even if that pre-check passed.
	PurchaseReward(ctx context.Context, userID string, reward Reward, tx CoinTransaction) (*CoinTransaction, error)

	// Carry-over (§4.8)
	CopyTaskToDate(ctx context.Context, taskID TaskID, userID, targetDate string) error
}
