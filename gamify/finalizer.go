package gamify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kvaranth/dayclock/metrics"
	"github.com/kvaranth/dayclock/plan"
)

// Finalizer implements the Day Finalizer (spec.md §4.4): it closes
// accounting for one past Day Plan, exactly once, guarded by the plan's
// own day_finalized latch.
type Finalizer struct {
	Store  plan.Store
	Clock  plan.Clock
	Logger *zap.SugaredLogger
}

func NewFinalizer(store plan.Store, clock plan.Clock, logger *zap.SugaredLogger) *Finalizer {
	return &Finalizer{Store: store, Clock: clock, Logger: logger}
}

// FinalizeDay returns (nil, nil) when gamification is disabled, the plan
// does not exist, or the plan was already finalized — all three are
// defined as no-ops, not errors (spec.md §7).
func (f *Finalizer) FinalizeDay(ctx context.Context, userID, date string) (*plan.FinalizeResult, error) {
	settings, err := f.Store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !settings.GamificationEnabled {
		return nil, nil
	}

	dayPlan, err := f.Store.GetDayPlan(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	if dayPlan == nil || dayPlan.DayFinalized {
		return nil, nil
	}

	balance, err := f.Store.GetCoinBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	streak := balance.Streak

	totalBonus, totalPenalty := 0, 0
	for _, t := range dayPlan.Tasks {
		switch t.Status {
		case plan.StatusCompleted:
			t.CoinsEarned = Bonus(t)
			t.CoinsPenalty = Penalty(t)
			totalBonus += t.CoinsEarned
			totalPenalty += t.CoinsPenalty
		case plan.StatusSkipped:
			t.CoinsPenalty = Penalty(t)
			totalPenalty += t.CoinsPenalty
		default:
			// Pending/Active at day's end: treated as skipped for penalty
			// accounting only, status itself is left untouched.
			asSkipped := t
			asSkipped.Status = plan.StatusSkipped
			t.CoinsPenalty = Penalty(asSkipped)
			totalPenalty += t.CoinsPenalty
		}
		if err := f.Store.SaveTask(ctx, t); err != nil {
			f.Logger.Warnw("finalize: failed to persist task coin fields", "task_id", t.ID, "error", err)
		}
	}

	m := StreakMultiplier(streak)
	dayTotal := int(decimal.NewFromInt(int64(totalBonus - totalPenalty)).Mul(m).Floor().IntPart())

	newStreak := streak + 1
	streakBroken := false
	if dayTotal < 0 {
		newStreak = 0
		streakBroken = streak > 0
	}

	if err := f.Store.FinalizeDayPlan(ctx, dayPlan.ID, totalBonus, totalPenalty, dayTotal); err != nil {
		return nil, err
	}

	if dayTotal != 0 {
		newBalance := clampedOrCredited(balance.Balance, int64(dayTotal), settings.AllowNegativeBalance)
		tx := plan.CoinTransaction{
			CreatedAt: f.Clock.Now(),
			Amount:    int64(dayTotal),
			Reason:    fmt.Sprintf("day total %s (x%.1f streak)", date, StreakMultiplierFloat(streak)),
			PlanDate:  &date,
		}
		ns := newStreak
		if err := f.Store.AppendTransaction(ctx, userID, tx, newBalance, &ns); err != nil {
			return nil, err
		}
	} else if err := f.Store.SetStreak(ctx, userID, newStreak); err != nil {
		return nil, err
	}

	metrics.Finalizations.Inc()

	return &plan.FinalizeResult{
		Bonus:        totalBonus,
		Penalty:      totalPenalty,
		Multiplier:   StreakMultiplierFloat(streak),
		Total:        dayTotal,
		NewStreak:    newStreak,
		StreakBroken: streakBroken,
	}, nil
}

// clampedOrCredited applies the credit/debit rule from the ledger
// (unconditional credit for positive totals, clamped debit otherwise) for
// the one coin movement the finalizer itself writes.
func clampedOrCredited(balance int64, delta int64, allowNegative bool) int64 {
	if delta >= 0 {
		return balance + delta
	}
	return clampedDebit(balance, -delta, allowNegative)
}
