package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// BudgetRepository handles budget templates and their month-specific plans.
// A nil category ID addresses the aggregate budget; the unique constraints
// treat NULL as a distinct-free value so insert-or-ignore works for both
// scopes.
type BudgetRepository struct {
	db database.PGXDB
}

// NewBudgetRepository creates a new BudgetRepository.
func NewBudgetRepository(db database.PGXDB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// UpsertTemplate creates or replaces the standing limit for a user and
// category scope.
func (r *BudgetRepository) UpsertTemplate(ctx context.Context, budget *models.Budget) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO budgets (user_id, category_id, limit_amount, period)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category_id) DO UPDATE SET
			limit_amount = EXCLUDED.limit_amount,
			period = EXCLUDED.period,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, budget.UserID, budget.CategoryID, budget.Limit, budget.Period,
	).Scan(&budget.ID, &budget.CreatedAt, &budget.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert budget template: %w", err)
	}
	return nil
}

// GetTemplate retrieves the standing limit for a user and category scope.
// Returns (nil, nil) when no template is configured.
func (r *BudgetRepository) GetTemplate(ctx context.Context, userID int64, categoryID *int) (*models.Budget, error) {
	var b models.Budget
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, category_id, limit_amount, period, created_at, updated_at
		FROM budgets
		WHERE user_id = $1 AND category_id IS NOT DISTINCT FROM $2
	`, userID, categoryID).Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Limit, &b.Period, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget template: %w", err)
	}
	return &b, nil
}

// GetTemplatesByUser retrieves every standing limit of a user, aggregate
// scope first.
func (r *BudgetRepository) GetTemplatesByUser(ctx context.Context, userID int64) ([]models.Budget, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, category_id, limit_amount, period, created_at, updated_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY category_id NULLS FIRST
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget templates: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Limit, &b.Period, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget template: %w", err)
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budget templates: %w", err)
	}
	return budgets, nil
}

// DeleteTemplate removes the standing limit for a user and category scope.
func (r *BudgetRepository) DeleteTemplate(ctx context.Context, userID int64, categoryID *int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM budgets
		WHERE user_id = $1 AND category_id IS NOT DISTINCT FROM $2
	`, userID, categoryID)
	if err != nil {
		return fmt.Errorf("failed to delete budget template: %w", err)
	}
	return nil
}

// GetPlan retrieves the monthly plan for a user, month and category scope.
// Returns (nil, nil) when no plan has been materialized yet.
func (r *BudgetRepository) GetPlan(ctx context.Context, userID int64, month time.Time, categoryID *int) (*models.MonthlyBudgetPlan, error) {
	var p models.MonthlyBudgetPlan
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, month, category_id, planned_limit, carry_over, carry_over_applied,
		       created_at, updated_at
		FROM monthly_budget_plans
		WHERE user_id = $1 AND month = $2 AND category_id IS NOT DISTINCT FROM $3
	`, userID, month, categoryID).Scan(
		&p.ID, &p.UserID, &p.Month, &p.CategoryID, &p.PlannedLimit,
		&p.CarryOver, &p.CarryOverApplied, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly plan: %w", err)
	}
	return &p, nil
}

// CreatePlanIfAbsent materializes a plan for the month unless one already
// exists. Safe under concurrent derivation of the same plan: whoever
// loses the insert race reads the winner's row afterwards.
func (r *BudgetRepository) CreatePlanIfAbsent(
	ctx context.Context,
	userID int64,
	month time.Time,
	categoryID *int,
	plannedLimit decimal.Decimal,
) (*models.MonthlyBudgetPlan, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO monthly_budget_plans (user_id, month, category_id, planned_limit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT uq_monthly_plan DO NOTHING
	`, userID, month, categoryID, plannedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to create monthly plan: %w", err)
	}

	plan, err := r.GetPlan(ctx, userID, month, categoryID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("monthly plan missing after insert")
	}
	return plan, nil
}

// CommitCarryOver records a confirmed carry-over on a plan, overwriting
// any previously applied amount. Last confirmation wins.
func (r *BudgetRepository) CommitCarryOver(ctx context.Context, planID int, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		UPDATE monthly_budget_plans
		SET carry_over = $2, carry_over_applied = TRUE, updated_at = NOW()
		WHERE id = $1
	`, planID, amount)
	if err != nil {
		return fmt.Errorf("failed to commit carry-over: %w", err)
	}
	return nil
}

// GetPlansForMonth retrieves every materialized plan of a user for a month,
// aggregate scope first.
func (r *BudgetRepository) GetPlansForMonth(ctx context.Context, userID int64, month time.Time) ([]models.MonthlyBudgetPlan, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, month, category_id, planned_limit, carry_over, carry_over_applied,
		       created_at, updated_at
		FROM monthly_budget_plans
		WHERE user_id = $1 AND month = $2
		ORDER BY category_id NULLS FIRST
	`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly plans: %w", err)
	}
	defer rows.Close()

	var plans []models.MonthlyBudgetPlan
	for rows.Next() {
		var p models.MonthlyBudgetPlan
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Month, &p.CategoryID, &p.PlannedLimit,
			&p.CarryOver, &p.CarryOverApplied, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monthly plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly plans: %w", err)
	}
	return plans, nil
}
