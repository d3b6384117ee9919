/*
Package gamify implements the deterministic, side-effect-free formulas
that convert task outcomes into coins (spec.md §4.3), plus the Coin
Transaction Ledger (§4.6) and the Day Finalizer (§4.4) built on top of
them.

All intermediate ratio/multiplier arithmetic uses decimal.Decimal rather
than float64, the same discipline the teacher's Amount type applies to
balance math, so results floor to integer coins without float drift —
coin fields are never persisted as floats (spec.md §9).
*/
package gamify

import (
	"github.com/shopspring/decimal"

	"github.com/kvaranth/dayclock/plan"
)

var (
	rateHigh   = decimal.NewFromFloat(1.0 / 300)
	rateNormal = decimal.NewFromFloat(1.0 / 600)
	rateLow    = decimal.Zero

	two     = decimal.NewFromInt(2)
	one     = decimal.NewFromInt(1)
	half    = decimal.NewFromFloat(0.5)
)

func rateFor(p plan.Priority) decimal.Decimal {
	switch plan.NormalizePriority(p) {
	case plan.PriorityHigh:
		return rateHigh
	case plan.PriorityLow:
		return rateLow
	default:
		return rateNormal
	}
}

// BaseCost is what a task is "worth" given its allocation and priority;
// bonus and penalty are both multiples of it.
func BaseCost(t plan.Task) int {
	rate := rateFor(t.Priority)
	if rate.IsZero() {
		return 0
	}
	base := decimal.NewFromInt(int64(t.AllocatedSeconds)).Mul(rate).Floor()
	if base.LessThan(one) {
		return 1
	}
	return int(base.IntPart())
}

// Bonus is the coin reward for a completed task.
func Bonus(t plan.Task) int {
	if plan.NormalizePriority(t.Priority) == plan.PriorityLow {
		return 0
	}
	base := BaseCost(t)
	if t.AllocatedSeconds <= 0 {
		return base
	}

	ratio := decimal.NewFromInt(int64(t.ElapsedSeconds)).Div(decimal.NewFromInt(int64(t.AllocatedSeconds)))

	var multiplier decimal.Decimal
	switch {
	case ratio.LessThanOrEqual(one):
		multiplier = two.Sub(ratio)
	case ratio.LessThanOrEqual(two):
		multiplier = two.Sub(one.Div(ratio))
	default:
		return 0
	}

	result := decimal.NewFromInt(int64(base)).Mul(multiplier).Floor()
	if result.LessThan(one) {
		return 1
	}
	return int(result.IntPart())
}

// Penalty is the coin cost for a task that was skipped, or completed more
// than twice over its allocation. Exactly 2x is not a penalty.
func Penalty(t plan.Task) int {
	if plan.NormalizePriority(t.Priority) == plan.PriorityLow {
		return 0
	}
	base := BaseCost(t)

	if t.Status == plan.StatusSkipped {
		return base
	}
	if t.Status == plan.StatusCompleted && t.AllocatedSeconds > 0 {
		ratio := decimal.NewFromInt(int64(t.ElapsedSeconds)).Div(decimal.NewFromInt(int64(t.AllocatedSeconds)))
		if ratio.GreaterThan(two) {
			return base
		}
	}
	return 0
}

// PostponePenalty is charged when a task is carried over to the next day
// instead of being completed or skipped today.
func PostponePenalty(t plan.Task) int {
	if plan.NormalizePriority(t.Priority) == plan.PriorityLow {
		return 0
	}
	result := decimal.NewFromInt(int64(BaseCost(t))).Mul(half).Floor()
	if result.LessThan(one) {
		return 1
	}
	return int(result.IntPart())
}

// StreakMultiplier caps at 2.0 once the streak reaches 10 consecutive
// finalized days with a non-negative total.
func StreakMultiplier(streak int) decimal.Decimal {
	capped := streak
	if capped > 10 {
		capped = 10
	}
	if capped < 0 {
		capped = 0
	}
	return one.Add(decimal.NewFromFloat(0.1).Mul(decimal.NewFromInt(int64(capped))))
}

// StreakMultiplierFloat is the display/serialization form.
func StreakMultiplierFloat(streak int) float64 {
	f, _ := StreakMultiplier(streak).Float64()
	return f
}

// Preview computes the non-mutating end-of-day forecast for a plan still
// in progress.
func Preview(p plan.DayPlan, streak int) plan.DayPreview {
	earned, potential, penalties := 0, 0, 0

	for _, t := range p.Tasks {
		switch t.Status {
		case plan.StatusCompleted:
			earned += Bonus(t)
			penalties += Penalty(t)
		case plan.StatusSkipped:
			penalties += Penalty(t)
		default:
			potential += BaseCost(t)
		}
	}

	m := StreakMultiplier(streak)
	totalEarned := decimal.NewFromInt(int64(earned - penalties)).Mul(m).Floor().IntPart()
	totalPotential := decimal.NewFromInt(int64(earned + potential - penalties)).Mul(m).Floor().IntPart()

	mf, _ := m.Float64()
	return plan.DayPreview{
		Earned:         earned,
		Potential:      potential,
		Penalties:      penalties,
		TotalEarned:    int(totalEarned),
		TotalPotential: int(totalPotential),
		Multiplier:     mf,
		Streak:         streak,
	}
}
