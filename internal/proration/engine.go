package proration

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kbrayane/immoflow-backend/pkg/enums"
	pkgerrors "github.com/kbrayane/immoflow-backend/pkg/errors"
)

// Input carries everything needed to prorate an immediate plan change.
// Prices are integers in the smallest currency unit. CycleEnd nil means the
// current cycle is open-ended and its length is derived from the billing
// cycle; non-nil means the stored end date wins.
type Input struct {
	CurrentPlanPrice int64
	NewPlanPrice     int64
	CycleStart       time.Time
	CycleEnd         *time.Time
	Cycle            enums.BillingCycle
	Now              time.Time
}

// Result is the value object describing a computed proration.
// RemainingPercentage is display-only; every monetary term is derived from
// the integer day counts.
type Result struct {
	RemainingDays       int64   `json:"remaining_days"`
	TotalDays           int64   `json:"total_days"`
	RemainingPercentage float64 `json:"remaining_percentage"`
	CurrentPlanCredit   int64   `json:"current_plan_credit"`
	NewPlanProrataCost  int64   `json:"new_plan_prorata_cost"`
	AmountDue           int64   `json:"amount_due"`
}

// Calculate computes the prorated amount due for an immediate plan change.
//
// A nil Result with a nil error means proration is not applicable and the
// caller must charge the full new-plan price: the target plan is free (the
// credit is forfeited, never refunded), the cycle has no days left, or the
// window is not computable. This is the only skip signal; callers must not
// inspect the fields of a nil Result.
func Calculate(in Input) (*Result, error) {
	if in.CurrentPlanPrice < 0 || in.NewPlanPrice < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan prices must not be negative")
	}
	if in.CycleStart.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cycle start is required")
	}
	if in.CycleEnd != nil && !in.CycleEnd.After(in.CycleStart) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cycle end must be after cycle start")
	}
	if !in.Cycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid billing cycle")
	}

	// Downgrading to a free plan forfeits the remaining credit rather than
	// triggering a cash refund; the caller activates the plan with no charge.
	if in.NewPlanPrice == 0 {
		return nil, nil
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	cycleEnd := effectiveCycleEnd(in.CycleStart, in.CycleEnd, in.Cycle)
	totalDays := daysBetween(in.CycleStart, cycleEnd)
	if totalDays <= 0 {
		return nil, nil
	}

	remainingDays := daysBetween(now, cycleEnd)
	if remainingDays < 0 {
		remainingDays = 0
	}
	if remainingDays > totalDays {
		remainingDays = totalDays
	}
	if remainingDays == 0 {
		return nil, nil
	}

	credit := prorate(in.CurrentPlanPrice, remainingDays, totalDays)
	cost := prorate(in.NewPlanPrice, remainingDays, totalDays)

	return &Result{
		RemainingDays:       remainingDays,
		TotalDays:           totalDays,
		RemainingPercentage: float64(remainingDays) / float64(totalDays),
		CurrentPlanCredit:   credit,
		NewPlanProrataCost:  cost,
		AmountDue:           cost - credit,
	}, nil
}

// prorate computes round-half-up(price * remaining / total) in integer
// currency units. Each term is rounded exactly once.
func prorate(price, remainingDays, totalDays int64) int64 {
	return decimal.NewFromInt(price).
		Mul(decimal.NewFromInt(remainingDays)).
		Div(decimal.NewFromInt(totalDays)).
		Round(0).
		IntPart()
}

func effectiveCycleEnd(start time.Time, end *time.Time, cycle enums.BillingCycle) time.Time {
	if end != nil {
		return *end
	}
	if cycle == enums.BillingCycleYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}

func daysBetween(from, to time.Time) int64 {
	return int64(to.Sub(from).Hours() / 24)
}
