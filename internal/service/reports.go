package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/repository"
)

// Period is a report window. Nil bounds mean all time; when present the
// window is start-inclusive, end-exclusive. Chat reports rely on the
// end-exclusive bound for month-rollover correctness.
type Period struct {
	Start *time.Time
	End   *time.Time
	Label string
}

// Duration returns the window length, zero when either bound is open.
func (p Period) Duration() time.Duration {
	if p.Start == nil || p.End == nil {
		return 0
	}
	return p.End.Sub(*p.Start)
}

// Dynamics compares spending in a window against the preceding one.
type Dynamics struct {
	Current    decimal.Decimal
	Previous   decimal.Decimal
	Difference decimal.Decimal
}

// ChatExpenseStore is the chat-scoped aggregation surface for reports.
type ChatExpenseStore interface {
	SumAbsByChat(ctx context.Context, chatID int64, start, end *time.Time) (decimal.Decimal, error)
	CategorySummaryByChat(ctx context.Context, chatID int64, start, end *time.Time) ([]repository.CategoryTotal, error)
}

// Reporter aggregates chat-scoped spending for reports.
type Reporter struct {
	expenses ChatExpenseStore
	lexUncat string
}

// NewReporter creates a Reporter. uncategorizedLabel replaces the empty
// category name of uncategorized expenses in summaries.
func NewReporter(expenses ChatExpenseStore, uncategorizedLabel string) *Reporter {
	return &Reporter{expenses: expenses, lexUncat: uncategorizedLabel}
}

// TotalByChat returns the chat's absolute spending total in the period.
func (r *Reporter) TotalByChat(ctx context.Context, chatID int64, period Period) (decimal.Decimal, error) {
	return r.expenses.SumAbsByChat(ctx, chatID, period.Start, period.End)
}

// CategorySummary returns the chat's per-category totals, largest first.
func (r *Reporter) CategorySummary(ctx context.Context, chatID int64, period Period) ([]repository.CategoryTotal, error) {
	summary, err := r.expenses.CategorySummaryByChat(ctx, chatID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	for i := range summary {
		if summary[i].CategoryName == "" {
			summary[i].CategoryName = r.lexUncat
		}
	}
	return summary, nil
}

// GetDynamics compares the period's total against the preceding window of
// the same length. Open-ended periods compare against all time, which
// yields equal totals and a zero difference.
func (r *Reporter) GetDynamics(ctx context.Context, chatID int64, current Period) (*Dynamics, error) {
	previous := Period{}
	if current.Start != nil && current.End != nil {
		prevStart := current.Start.Add(-current.Duration())
		previous = Period{Start: &prevStart, End: current.Start}
	}

	currentTotal, err := r.expenses.SumAbsByChat(ctx, chatID, current.Start, current.End)
	if err != nil {
		return nil, err
	}
	previousTotal, err := r.expenses.SumAbsByChat(ctx, chatID, previous.Start, previous.End)
	if err != nil {
		return nil, err
	}

	return &Dynamics{
		Current:    currentTotal,
		Previous:   previousTotal,
		Difference: currentTotal.Sub(previousTotal),
	}, nil
}

// CashflowSummary totals income against expense for a user over a period.
type CashflowSummary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
}

// Net returns income minus expense.
func (s CashflowSummary) Net() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpense)
}

// SavingsRatePercent returns net/income as a percentage rounded to 2
// decimals, 0 when there is no income.
func (s CashflowSummary) SavingsRatePercent() decimal.Decimal {
	if s.TotalIncome.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return s.Net().Div(s.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
}

// MonthlyCashflowRow is one month of the cashflow breakdown.
type MonthlyCashflowRow struct {
	Month   time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Net returns the month's income minus expense.
func (r MonthlyCashflowRow) Net() decimal.Decimal {
	return r.Income.Sub(r.Expense)
}

// UserExpenseSums is the user-scoped expense aggregation surface.
type UserExpenseSums interface {
	SumAbsByUser(ctx context.Context, userID int64, start, end time.Time, categoryID *int) (decimal.Decimal, error)
	MonthlyTotalsByUser(ctx context.Context, userID int64) (map[time.Time]decimal.Decimal, error)
}

// IncomeSums is the income aggregation surface.
type IncomeSums interface {
	SumByUser(ctx context.Context, userID int64, start, end time.Time) (decimal.Decimal, error)
	MonthlyTotalsByUser(ctx context.Context, userID int64) (map[time.Time]decimal.Decimal, error)
}

// CashflowService computes income-versus-expense aggregates per user.
// Windows are date-inclusive on both ends: [from, to] covers whole days.
type CashflowService struct {
	expenses UserExpenseSums
	incomes  IncomeSums
}

// NewCashflowService creates a CashflowService.
func NewCashflowService(expenses UserExpenseSums, incomes IncomeSums) *CashflowService {
	return &CashflowService{expenses: expenses, incomes: incomes}
}

// Summary totals income and expense for the user over [from, to],
// date-inclusive.
func (s *CashflowService) Summary(ctx context.Context, userID int64, from, to time.Time) (CashflowSummary, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location()).AddDate(0, 0, 1)

	income, err := s.incomes.SumByUser(ctx, userID, start, end)
	if err != nil {
		return CashflowSummary{}, err
	}
	expense, err := s.expenses.SumAbsByUser(ctx, userID, start, end, nil)
	if err != nil {
		return CashflowSummary{}, err
	}
	return CashflowSummary{TotalIncome: income, TotalExpense: expense}, nil
}

// MonthlyBreakdown returns one row per month that has any income or
// expense, chronological.
func (s *CashflowService) MonthlyBreakdown(ctx context.Context, userID int64) ([]MonthlyCashflowRow, error) {
	incomeByMonth, err := s.incomes.MonthlyTotalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	expenseByMonth, err := s.expenses.MonthlyTotalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	months := make(map[time.Time]struct{}, len(incomeByMonth)+len(expenseByMonth))
	for m := range incomeByMonth {
		months[m] = struct{}{}
	}
	for m := range expenseByMonth {
		months[m] = struct{}{}
	}

	sorted := make([]time.Time, 0, len(months))
	for m := range months {
		sorted = append(sorted, m)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	rows := make([]MonthlyCashflowRow, 0, len(sorted))
	for _, m := range sorted {
		row := MonthlyCashflowRow{Month: m, Income: decimal.Zero, Expense: decimal.Zero}
		if v, ok := incomeByMonth[m]; ok {
			row.Income = v
		}
		if v, ok := expenseByMonth[m]; ok {
			row.Expense = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
