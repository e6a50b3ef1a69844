package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/models"
	"gitlab.com/mkovalev/budget-bot/internal/repository"
)

// ErrAlreadyCompleted indicates a planned expense was already realized,
// typically by a concurrent confirmation of the same reminder.
var ErrAlreadyCompleted = errors.New("planned expense already completed")

// PlannedExpenses manages future obligations and their realization as
// actual expenses.
type PlannedExpenses struct {
	pool     database.TxBeginner
	planned  *repository.PlannedExpenseRepository
	expenses *repository.ExpenseRepository
}

// NewPlannedExpenses creates a PlannedExpenses service. The pool is used
// to run realization atomically.
func NewPlannedExpenses(pool database.TxBeginner, planned *repository.PlannedExpenseRepository, expenses *repository.ExpenseRepository) *PlannedExpenses {
	return &PlannedExpenses{pool: pool, planned: planned, expenses: expenses}
}

// Create records a future obligation. The amount is stored absolute.
func (s *PlannedExpenses) Create(ctx context.Context, userID int64, amount decimal.Decimal, description string, plannedDate time.Time, categoryID *int) (*models.PlannedExpense, error) {
	pe := &models.PlannedExpense{
		UserID:      userID,
		Amount:      amount.Abs(),
		CategoryID:  categoryID,
		Description: description,
		PlannedDate: plannedDate,
	}
	if err := s.planned.Create(ctx, pe); err != nil {
		return nil, err
	}
	return pe, nil
}

// Upcoming returns incomplete obligations dated today or later.
func (s *PlannedExpenses) Upcoming(ctx context.Context, userID int64, today time.Time, limit int) ([]models.PlannedExpense, error) {
	// Far horizon; obligations are short-lived entries, not multi-decade plans.
	horizon := today.AddDate(10, 0, 0)
	items, err := s.planned.GetPendingInRange(ctx, userID, dateOf(today), horizon)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Overdue returns incomplete obligations dated strictly before today.
func (s *PlannedExpenses) Overdue(ctx context.Context, userID int64, today time.Time) ([]models.PlannedExpense, error) {
	all, err := s.planned.GetPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	cutoff := dateOf(today)
	var overdue []models.PlannedExpense
	for _, pe := range all {
		if pe.PlannedDate.Before(cutoff) {
			overdue = append(overdue, pe)
		}
	}
	return overdue, nil
}

// RecordAsExpense realizes a planned expense: creates the actual expense
// and marks the obligation completed with a link to it, both inside one
// transaction. Either both rows change or neither does.
func (s *PlannedExpenses) RecordAsExpense(ctx context.Context, userID int64, plannedID int, chatID *int64) (*models.Expense, error) {
	pe, err := s.planned.GetByID(ctx, userID, plannedID)
	if err != nil {
		return nil, err
	}
	if pe == nil {
		return nil, fmt.Errorf("planned expense %d not found", plannedID)
	}
	if pe.IsCompleted {
		return nil, ErrAlreadyCompleted
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	expense := &models.Expense{
		UserID:     userID,
		Amount:     pe.Amount,
		CategoryID: pe.CategoryID,
		ChatID:     chatID,
		RawText:    pe.Description,
	}
	if err := s.expenses.WithDB(tx).Create(ctx, expense); err != nil {
		return nil, err
	}

	completed, err := s.planned.WithDB(tx).MarkCompleted(ctx, pe.ID, expense.ID)
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, ErrAlreadyCompleted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	logger.Log.Info().
		Str("user", logger.HashUserID(userID)).
		Int("planned_id", pe.ID).
		Msg("planned expense realized")
	return expense, nil
}

// MonthTotal sums incomplete obligations dated within the given month.
func (s *PlannedExpenses) MonthTotal(ctx context.Context, userID int64, month time.Time) (decimal.Decimal, error) {
	monthStart := MonthStart(month)
	monthEnd := NextMonth(monthStart).AddDate(0, 0, -1)
	items, err := s.planned.GetPendingInRange(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, pe := range items {
		total = total.Add(pe.Amount)
	}
	return total, nil
}

// Delete removes an obligation owned by the user.
func (s *PlannedExpenses) Delete(ctx context.Context, userID int64, id int) error {
	return s.planned.Delete(ctx, userID, id)
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
