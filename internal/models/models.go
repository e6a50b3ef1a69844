// Package models defines the domain entities for the family budget bot.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 100

// FallbackCategoryName is the catch-all category used when resolution fails.
// Created lazily if absent; it always exists from the caller's point of view.
const FallbackCategoryName = "Прочее"

// BudgetPeriod values for Budget templates. Only monthly is exercised by
// the planner; the others are kept for template configuration parity.
const (
	BudgetPeriodDaily   = "daily"
	BudgetPeriodWeekly  = "weekly"
	BudgetPeriodMonthly = "monthly"
)

// User represents a Telegram user.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category is a canonical label for a transaction's purpose.
// Categories are shared reference data with no owner.
type Category struct {
	ID        int
	Name      string
	CreatedAt time.Time
}

// CategoryAlias maps alternate text to a category. Aliases are globally
// unique; each alias resolves to exactly one category.
type CategoryAlias struct {
	ID         int
	CategoryID int
	Alias      string
	CreatedAt  time.Time
}

// Expense represents a single recorded expense. Amount is always stored
// non-negative; a leading minus in user input indicates intent, not sign.
// Immutable after creation except soft delete.
type Expense struct {
	ID         int
	UserID     int64
	Amount     decimal.Decimal
	CategoryID *int
	Category   *Category
	ChatID     *int64
	RawText    string
	MessageID  *int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Income represents a recorded income entry. Kept separate from expenses
// to avoid sign confusion and simplify analytics.
type Income struct {
	ID          int
	UserID      int64
	Amount      decimal.Decimal
	CategoryID  *int
	Category    *Category
	Description string
	ChatID      *int64
	RawText     string
	MessageID   *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Budget is a user's standing limit template, not tied to a specific month.
// A nil CategoryID means an aggregate budget across all categories.
type Budget struct {
	ID         int
	UserID     int64
	CategoryID *int
	Limit      decimal.Decimal
	Period     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MonthlyBudgetPlan is a month-specific materialization of a Budget
// template. CarryOver counts toward the effective limit only after the
// user has explicitly confirmed it.
type MonthlyBudgetPlan struct {
	ID               int
	UserID           int64
	Month            time.Time // first day of the month
	CategoryID       *int
	PlannedLimit     decimal.Decimal
	CarryOver        decimal.Decimal
	CarryOverApplied bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EffectiveLimit returns the planned limit plus the confirmed carry-over.
func (p *MonthlyBudgetPlan) EffectiveLimit() decimal.Decimal {
	if p.CarryOverApplied {
		return p.PlannedLimit.Add(p.CarryOver)
	}
	return p.PlannedLimit
}

// VacationPeriod scales the derived monthly limit for months overlapping
// the date range. Applied at plan creation time, not retroactively.
type VacationPeriod struct {
	ID               int
	UserID           int64
	StartDate        time.Time
	EndDate          time.Time
	BudgetMultiplier decimal.Decimal
	Description      string
	CreatedAt        time.Time
}

// PlannedExpense is a future obligation not yet realized as a transaction.
type PlannedExpense struct {
	ID              int
	UserID          int64
	Amount          decimal.Decimal
	CategoryID      *int
	Category        *Category
	Description     string
	PlannedDate     time.Time
	IsCompleted     bool
	LinkedExpenseID *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SavingGoal tracks progress toward a target amount. IsAchieved flips to
// true automatically once CurrentAmount reaches TargetAmount and never
// flips back (there is no withdrawal operation).
type SavingGoal struct {
	ID            int
	UserID        int64
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      *time.Time
	IsAchieved    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProgressPercent returns accumulated/target as a percentage, 100 when the
// target is not positive.
func (g *SavingGoal) ProgressPercent() decimal.Decimal {
	if g.TargetAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.NewFromInt(100)
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// Remaining returns how much is still needed, never negative.
func (g *SavingGoal) Remaining() decimal.Decimal {
	remaining := g.TargetAmount.Sub(g.CurrentAmount)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IncomeSchedule describes a recurring payday used for reminders.
// DayOfMonth is clamped to the month's last day when shorter.
type IncomeSchedule struct {
	ID             int
	UserID         int64
	Name           string
	DayOfMonth     int
	ExpectedAmount *decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
