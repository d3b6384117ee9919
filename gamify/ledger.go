package gamify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/metrics"
	"github.com/kvaranth/dayclock/plan"
)

// Ledger implements the Coin Transaction Ledger (spec.md §4.6): every
// credit or debit appends exactly one append-only transaction and updates
// the single Coin Balance row in the same store call.
type Ledger struct {
	Store  plan.Store
	Clock  plan.Clock
	Logger *zap.SugaredLogger
}

func NewLedger(store plan.Store, clock plan.Clock, logger *zap.SugaredLogger) *Ledger {
	return &Ledger{Store: store, Clock: clock, Logger: logger}
}

// Credit applies an unconditional positive balance change — used for day
// totals and any other coin grant.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, reason string, taskID *plan.TaskID, planDate *string) (*plan.CoinTransaction, error) {
	if amount < 0 {
		return nil, &plan.ValidationError{Field: "amount", Message: "credit must be non-negative"}
	}
	balance, err := l.Store.GetCoinBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	tx := plan.CoinTransaction{
		CreatedAt: l.Clock.Now(),
		Amount:    amount,
		Reason:    reason,
		TaskID:    taskID,
		PlanDate:  planDate,
	}
	if err := l.Store.AppendTransaction(ctx, userID, tx, balance.Balance+amount, nil); err != nil {
		return nil, err
	}
	return &tx, nil
}

// DebitPenalty applies a penalty deduction (no reward link). When the
// balance may not go negative, the effective deducted amount clamps at
// the current balance — the recorded transaction still carries the full
// penalty amount (spec.md §4.6).
func (l *Ledger) DebitPenalty(ctx context.Context, userID string, amount int64, reason string, taskID *plan.TaskID, planDate *string) (*plan.CoinTransaction, error) {
	if amount > 0 {
		return nil, &plan.ValidationError{Field: "amount", Message: "penalty debit must be non-positive"}
	}
	settings, err := l.Store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance, err := l.Store.GetCoinBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	newBalance := clampedDebit(balance.Balance, -amount, settings.AllowNegativeBalance)

	tx := plan.CoinTransaction{
		CreatedAt: l.Clock.Now(),
		Amount:    amount,
		Reason:    reason,
		TaskID:    taskID,
		PlanDate:  planDate,
	}
	if err := l.Store.AppendTransaction(ctx, userID, tx, newBalance, nil); err != nil {
		return nil, err
	}
	return &tx, nil
}

// clampedDebit returns the new balance after deducting `deduct` (a
// non-negative amount) from `balance`, clamping at zero when negative
// balances are disallowed.
func clampedDebit(balance, deduct int64, allowNegative bool) int64 {
	if allowNegative {
		return balance - deduct
	}
	if deduct > balance {
		if balance > 0 {
			return 0
		}
		return balance
	}
	return balance - deduct
}

// Purchase executes a reward redemption: sold-out/inactive/insufficient
// checks, then the stock decrement, balance debit and ledger append all
// inside one store transaction (spec.md §4.7) so a purchase racing
// another against the same Limited reward can never oversell it.
// Purchases never drive the balance below zero regardless of
// AllowNegativeBalance. The pre-checks below are a fast, non-authoritative
// rejection path for the common case; PurchaseReward re-verifies both
// stock and balance under its own transaction and is the sole source of
// truth for whether the purchase actually succeeds.
func (l *Ledger) Purchase(ctx context.Context, userID, rewardID string) (*plan.CoinTransaction, error) {
	reward, err := l.Store.GetReward(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		metrics.Purchases.WithLabelValues("not_found").Inc()
		return nil, plan.ErrNotFound
	}
	if !reward.IsActive {
		metrics.Purchases.WithLabelValues("unavailable").Inc()
		return nil, &plan.PurchaseError{RewardID: rewardID, Reason: "unavailable"}
	}
	if reward.RewardType == plan.RewardLimited && reward.RemainingCount != nil && *reward.RemainingCount <= 0 {
		metrics.Purchases.WithLabelValues("sold_out").Inc()
		return nil, &plan.PurchaseError{RewardID: rewardID, Reason: "sold out"}
	}

	balance, err := l.Store.GetCoinBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance.Balance < reward.Price {
		metrics.Purchases.WithLabelValues("insufficient").Inc()
		return nil, &plan.PurchaseError{RewardID: rewardID, Reason: "insufficient"}
	}

	tx := plan.CoinTransaction{
		CreatedAt: l.Clock.Now(),
		Amount:    -reward.Price,
		Reason:    fmt.Sprintf("purchase: %s", reward.Name),
		RewardID:  &reward.ID,
	}
	committed, err := l.Store.PurchaseReward(ctx, userID, *reward, tx)
	if err != nil {
		var pe *plan.PurchaseError
		if errors.As(err, &pe) {
			metrics.Purchases.WithLabelValues(strings.ReplaceAll(pe.Reason, " ", "_")).Inc()
		} else {
			metrics.Purchases.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	metrics.Purchases.WithLabelValues("success").Inc()
	return committed, nil
}
