package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// PlannedExpenseRepository handles future obligation database operations.
type PlannedExpenseRepository struct {
	db database.PGXDB
}

// NewPlannedExpenseRepository creates a new PlannedExpenseRepository.
func NewPlannedExpenseRepository(db database.PGXDB) *PlannedExpenseRepository {
	return &PlannedExpenseRepository{db: db}
}

// WithDB returns a copy of the repository bound to the given executor.
// Used to mark completion inside the same transaction that records the
// realized expense.
func (r *PlannedExpenseRepository) WithDB(db database.PGXDB) *PlannedExpenseRepository {
	return &PlannedExpenseRepository{db: db}
}

// Create adds a new planned expense.
func (r *PlannedExpenseRepository) Create(ctx context.Context, pe *models.PlannedExpense) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO planned_expenses (user_id, amount, category_id, description, planned_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, pe.UserID, pe.Amount, pe.CategoryID, pe.Description, pe.PlannedDate,
	).Scan(&pe.ID, &pe.CreatedAt, &pe.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create planned expense: %w", err)
	}
	return nil
}

// GetByID retrieves a planned expense owned by the user.
// Returns (nil, nil) when it does not exist.
func (r *PlannedExpenseRepository) GetByID(ctx context.Context, userID int64, id int) (*models.PlannedExpense, error) {
	var pe models.PlannedExpense
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, amount, category_id, description, planned_date,
		       is_completed, linked_expense_id, created_at, updated_at
		FROM planned_expenses
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&pe.ID, &pe.UserID, &pe.Amount, &pe.CategoryID, &pe.Description,
		&pe.PlannedDate, &pe.IsCompleted, &pe.LinkedExpenseID, &pe.CreatedAt, &pe.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get planned expense: %w", err)
	}
	return &pe, nil
}

// GetPendingByUser retrieves a user's incomplete planned expenses ordered
// by planned date.
func (r *PlannedExpenseRepository) GetPendingByUser(ctx context.Context, userID int64) ([]models.PlannedExpense, error) {
	return r.queryPlanned(ctx, `
		SELECT id, user_id, amount, category_id, description, planned_date,
		       is_completed, linked_expense_id, created_at, updated_at
		FROM planned_expenses
		WHERE user_id = $1 AND NOT is_completed
		ORDER BY planned_date, id
	`, userID)
}

// GetPendingInRange retrieves incomplete planned expenses whose planned
// date falls in [from, to], date-inclusive.
func (r *PlannedExpenseRepository) GetPendingInRange(ctx context.Context, userID int64, from, to time.Time) ([]models.PlannedExpense, error) {
	return r.queryPlanned(ctx, `
		SELECT id, user_id, amount, category_id, description, planned_date,
		       is_completed, linked_expense_id, created_at, updated_at
		FROM planned_expenses
		WHERE user_id = $1 AND NOT is_completed
		  AND planned_date >= $2 AND planned_date <= $3
		ORDER BY planned_date, id
	`, userID, from, to)
}

func (r *PlannedExpenseRepository) queryPlanned(ctx context.Context, query string, args ...any) ([]models.PlannedExpense, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query planned expenses: %w", err)
	}
	defer rows.Close()

	var planned []models.PlannedExpense
	for rows.Next() {
		var pe models.PlannedExpense
		if err := rows.Scan(
			&pe.ID, &pe.UserID, &pe.Amount, &pe.CategoryID, &pe.Description,
			&pe.PlannedDate, &pe.IsCompleted, &pe.LinkedExpenseID, &pe.CreatedAt, &pe.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan planned expense: %w", err)
		}
		planned = append(planned, pe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating planned expenses: %w", err)
	}
	return planned, nil
}

// MarkCompleted flags a planned expense as realized and links the recorded
// expense. Only incomplete rows are updated; completing twice reports how
// many rows changed so the caller can detect the conflict.
func (r *PlannedExpenseRepository) MarkCompleted(ctx context.Context, id int, expenseID int) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE planned_expenses
		SET is_completed = TRUE, linked_expense_id = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_completed
	`, id, expenseID)
	if err != nil {
		return false, fmt.Errorf("failed to mark planned expense completed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes a planned expense owned by the user.
func (r *PlannedExpenseRepository) Delete(ctx context.Context, userID int64, id int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM planned_expenses WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete planned expense: %w", err)
	}
	return nil
}
