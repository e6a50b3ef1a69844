package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// ErrNotConfigured indicates the user has neither a monthly plan nor a
// budget template for the requested scope. A legitimate terminal state,
// callers render a setup prompt instead of failing.
var ErrNotConfigured = errors.New("budget not configured")

// ErrNothingToCarry indicates the source month has no positive remainder
// to carry over.
var ErrNothingToCarry = errors.New("nothing to carry over")

// BudgetStore is the plan and template storage surface of the planner.
type BudgetStore interface {
	GetTemplate(ctx context.Context, userID int64, categoryID *int) (*models.Budget, error)
	GetPlan(ctx context.Context, userID int64, month time.Time, categoryID *int) (*models.MonthlyBudgetPlan, error)
	CreatePlanIfAbsent(ctx context.Context, userID int64, month time.Time, categoryID *int, plannedLimit decimal.Decimal) (*models.MonthlyBudgetPlan, error)
	CommitCarryOver(ctx context.Context, planID int, amount decimal.Decimal) error
}

// VacationStore provides vacation periods overlapping a month.
type VacationStore interface {
	GetOverlappingMonth(ctx context.Context, userID int64, monthStart time.Time) ([]models.VacationPeriod, error)
}

// SpendStore provides spent totals over half-open timestamp windows.
type SpendStore interface {
	SumAbsByUser(ctx context.Context, userID int64, start, end time.Time, categoryID *int) (decimal.Decimal, error)
}

// PlannedStore provides not-yet-completed planned expenses in a date range.
type PlannedStore interface {
	GetPendingInRange(ctx context.Context, userID int64, from, to time.Time) ([]models.PlannedExpense, error)
}

// BudgetStatus is a snapshot of one budget scope for one month.
type BudgetStatus struct {
	CategoryID      *int
	Limit           decimal.Decimal
	Spent           decimal.Decimal
	PlannedUpcoming decimal.Decimal
}

// Remaining returns limit minus spent. May be negative.
func (s *BudgetStatus) Remaining() decimal.Decimal {
	return s.Limit.Sub(s.Spent)
}

// RemainingAfterPlanned subtracts upcoming obligations as well.
func (s *BudgetStatus) RemainingAfterPlanned() decimal.Decimal {
	return s.Limit.Sub(s.Spent).Sub(s.PlannedUpcoming)
}

// Overspent reports whether spending strictly exceeds the limit.
func (s *BudgetStatus) Overspent() bool {
	return s.Spent.GreaterThan(s.Limit)
}

// UsagePercent returns spent/limit as a percentage rounded to 2 decimals.
// A non-positive limit yields 100: unconstrained or misconfigured, never
// a division by zero.
func (s *BudgetStatus) UsagePercent() decimal.Decimal {
	if s.Limit.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(100)
	}
	return s.Spent.Div(s.Limit).Mul(decimal.NewFromInt(100)).Round(2)
}

// CarryOverProposal is an advisory remainder transfer. Nothing is
// persisted until the user confirms and ApplyCarryOver runs.
type CarryOverProposal struct {
	FromMonth  time.Time
	ToMonth    time.Time
	CategoryID *int
	Amount     decimal.Decimal
}

// PaceKind classifies a pacing recommendation.
type PaceKind int

const (
	// PaceOverspend means spending runs more than 15% ahead of plan.
	PaceOverspend PaceKind = iota
	// PaceGood means spending runs more than 30% behind plan.
	PaceGood
)

// Recommendation carries pacing data for the transport layer to render.
// Amounts and day counts only, no pre-rendered text.
type Recommendation struct {
	Kind           PaceKind
	Limit          decimal.Decimal
	Spent          decimal.Decimal
	ExpectedPace   decimal.Decimal
	Remaining      decimal.Decimal
	DailyAllowance decimal.Decimal
	DaysPassed     int
	DaysRemaining  int
	DaysInMonth    int
}

var (
	overspendThreshold = decimal.RequireFromString("1.15")
	goodPaceThreshold  = decimal.RequireFromString("0.70")
)

// BudgetPlanner derives monthly plans from templates, tracks spending
// against them and negotiates carry-over between months.
type BudgetPlanner struct {
	budgets   BudgetStore
	vacations VacationStore
	expenses  SpendStore
	planned   PlannedStore
}

// NewBudgetPlanner creates a BudgetPlanner over the given stores.
func NewBudgetPlanner(budgets BudgetStore, vacations VacationStore, expenses SpendStore, planned PlannedStore) *BudgetPlanner {
	return &BudgetPlanner{
		budgets:   budgets,
		vacations: vacations,
		expenses:  expenses,
		planned:   planned,
	}
}

// MonthStart normalizes any date to the first day of its month at midnight.
func MonthStart(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location())
}

// NextMonth returns the first day of the following month, rolling the
// year over at December.
func NextMonth(month time.Time) time.Time {
	return MonthStart(month).AddDate(0, 1, 0)
}

func daysInMonth(month time.Time) int {
	return NextMonth(month).AddDate(0, 0, -1).Day()
}

// GetOrCreatePlan returns the monthly plan for the scope, materializing it
// from the budget template on first read. The derived limit is the
// template limit times the multiplier of the first vacation period
// overlapping the month, 1 when none. Concurrent first reads race on the
// insert; the loser reads the winner's row.
func (p *BudgetPlanner) GetOrCreatePlan(ctx context.Context, userID int64, month time.Time, categoryID *int) (*models.MonthlyBudgetPlan, error) {
	monthStart := MonthStart(month)

	plan, err := p.budgets.GetPlan(ctx, userID, monthStart, categoryID)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		return plan, nil
	}

	template, err := p.budgets.GetTemplate(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	baseLimit := decimal.Zero
	if template != nil {
		baseLimit = template.Limit
	}

	adjusted, err := p.applyVacationMultiplier(ctx, userID, monthStart, baseLimit)
	if err != nil {
		return nil, err
	}

	plan, err = p.budgets.CreatePlanIfAbsent(ctx, userID, monthStart, categoryID, adjusted)
	if err != nil {
		return nil, err
	}
	logger.Log.Debug().
		Str("user", logger.HashUserID(userID)).
		Str("month", monthStart.Format("2006-01")).
		Msg("materialized monthly budget plan")
	return plan, nil
}

// applyVacationMultiplier scales the base limit by the first vacation
// period overlapping the month, if any. Applied at plan creation only,
// never retroactively.
func (p *BudgetPlanner) applyVacationMultiplier(ctx context.Context, userID int64, monthStart time.Time, base decimal.Decimal) (decimal.Decimal, error) {
	vacations, err := p.vacations.GetOverlappingMonth(ctx, userID, monthStart)
	if err != nil {
		return decimal.Zero, err
	}
	if len(vacations) == 0 {
		return base, nil
	}
	return base.Mul(vacations[0].BudgetMultiplier).Round(2), nil
}

// Status returns the budget snapshot for the month containing refDate.
// A missing plan is derived from the template on the spot; when neither
// exists the scope is ErrNotConfigured. Spending covers the whole month,
// date-inclusive on both ends; upcoming planned expenses cover refDate
// through month end.
func (p *BudgetPlanner) Status(ctx context.Context, userID int64, refDate time.Time, categoryID *int) (*BudgetStatus, error) {
	monthStart := MonthStart(refDate)
	nextMonth := NextMonth(monthStart)
	monthEnd := nextMonth.AddDate(0, 0, -1)

	plan, err := p.budgets.GetPlan(ctx, userID, monthStart, categoryID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		template, err := p.budgets.GetTemplate(ctx, userID, categoryID)
		if err != nil {
			return nil, err
		}
		if template == nil {
			return nil, ErrNotConfigured
		}
		plan, err = p.GetOrCreatePlan(ctx, userID, monthStart, categoryID)
		if err != nil {
			return nil, err
		}
	}

	spent, err := p.expenses.SumAbsByUser(ctx, userID, monthStart, nextMonth, categoryID)
	if err != nil {
		return nil, err
	}

	today := time.Date(refDate.Year(), refDate.Month(), refDate.Day(), 0, 0, 0, 0, refDate.Location())
	pending, err := p.planned.GetPendingInRange(ctx, userID, today, monthEnd)
	if err != nil {
		return nil, err
	}
	plannedUpcoming := decimal.Zero
	for _, pe := range pending {
		if !matchesScope(pe.CategoryID, categoryID) {
			continue
		}
		plannedUpcoming = plannedUpcoming.Add(pe.Amount)
	}

	return &BudgetStatus{
		CategoryID:      categoryID,
		Limit:           plan.EffectiveLimit(),
		Spent:           spent,
		PlannedUpcoming: plannedUpcoming,
	}, nil
}

// matchesScope reports whether a planned expense's category belongs to
// the requested scope. The aggregate scope (nil) includes everything.
func matchesScope(got, want *int) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

// Recommendation evaluates the aggregate budget's pace for the month
// containing refDate. Returns (nil, nil) when refDate is outside the
// month, no days remain, no budget exists, or the pace is unremarkable.
// Silence is a valid outcome, not an error.
func (p *BudgetPlanner) Recommendation(ctx context.Context, userID int64, refDate time.Time) (*Recommendation, error) {
	monthStart := MonthStart(refDate)
	totalDays := daysInMonth(monthStart)
	daysPassed := refDate.Day()
	daysRemaining := totalDays - daysPassed
	if daysRemaining <= 0 {
		return nil, nil
	}

	plan, err := p.budgets.GetPlan(ctx, userID, monthStart, nil)
	if err != nil {
		return nil, err
	}
	var limit decimal.Decimal
	if plan != nil {
		limit = plan.EffectiveLimit()
	} else {
		// Without a materialized plan the pace is measured against the
		// raw template limit. Recommendation never derives a plan, so
		// vacation multipliers and carry-over take effect only once
		// Status has materialized the month.
		template, err := p.budgets.GetTemplate(ctx, userID, nil)
		if err != nil {
			return nil, err
		}
		if template == nil {
			return nil, nil
		}
		limit = template.Limit
	}

	// Spent to date: month start through the end of refDate's day.
	dayAfter := time.Date(refDate.Year(), refDate.Month(), refDate.Day(), 0, 0, 0, 0, refDate.Location()).AddDate(0, 0, 1)
	spent, err := p.expenses.SumAbsByUser(ctx, userID, monthStart, dayAfter, nil)
	if err != nil {
		return nil, err
	}

	expectedPace := limit.Div(decimal.NewFromInt(int64(totalDays))).Mul(decimal.NewFromInt(int64(daysPassed)))
	remaining := limit.Sub(spent)
	dailyAllowance := remaining.Div(decimal.NewFromInt(int64(daysRemaining)))

	rec := &Recommendation{
		Limit:          limit,
		Spent:          spent,
		ExpectedPace:   expectedPace,
		Remaining:      remaining,
		DailyAllowance: dailyAllowance,
		DaysPassed:     daysPassed,
		DaysRemaining:  daysRemaining,
		DaysInMonth:    totalDays,
	}

	switch {
	case spent.GreaterThan(expectedPace.Mul(overspendThreshold)):
		rec.Kind = PaceOverspend
		return rec, nil
	case spent.LessThan(expectedPace.Mul(goodPaceThreshold)):
		rec.Kind = PaceGood
		return rec, nil
	default:
		return nil, nil
	}
}

// ComputeCarryOver proposes moving the source month's positive remainder
// to the next month. Returns (nil, ErrNothingToCarry) when no plan exists
// for the source month or the remainder is not positive. Purely advisory,
// nothing is persisted.
func (p *BudgetPlanner) ComputeCarryOver(ctx context.Context, userID int64, fromMonth time.Time, categoryID *int) (*CarryOverProposal, error) {
	fromStart := MonthStart(fromMonth)
	nextStart := NextMonth(fromStart)

	plan, err := p.budgets.GetPlan(ctx, userID, fromStart, categoryID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrNothingToCarry
	}

	spent, err := p.expenses.SumAbsByUser(ctx, userID, fromStart, nextStart, categoryID)
	if err != nil {
		return nil, err
	}

	carryOver := plan.EffectiveLimit().Sub(spent)
	if carryOver.LessThanOrEqual(decimal.Zero) {
		return nil, ErrNothingToCarry
	}

	return &CarryOverProposal{
		FromMonth:  fromStart,
		ToMonth:    nextStart,
		CategoryID: categoryID,
		Amount:     carryOver,
	}, nil
}

// ApplyCarryOver records a confirmed carry-over on the destination month,
// creating its plan with a zero limit when absent. Re-confirming replaces
// the previous value; the overwrite keeps repeated confirmation
// idempotent.
func (p *BudgetPlanner) ApplyCarryOver(ctx context.Context, userID int64, toMonth time.Time, amount decimal.Decimal, categoryID *int) (*models.MonthlyBudgetPlan, error) {
	monthStart := MonthStart(toMonth)

	plan, err := p.budgets.GetPlan(ctx, userID, monthStart, categoryID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		plan, err = p.budgets.CreatePlanIfAbsent(ctx, userID, monthStart, categoryID, decimal.Zero)
		if err != nil {
			return nil, err
		}
	}

	if err := p.budgets.CommitCarryOver(ctx, plan.ID, amount); err != nil {
		return nil, fmt.Errorf("apply carry-over: %w", err)
	}
	plan.CarryOver = amount
	plan.CarryOverApplied = true

	logger.Log.Info().
		Str("user", logger.HashUserID(userID)).
		Str("month", monthStart.Format("2006-01")).
		Str("amount", amount.String()).
		Msg("carry-over applied")
	return plan, nil
}
