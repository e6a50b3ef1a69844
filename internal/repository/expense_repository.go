package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// CategoryTotal is one row of a per-category breakdown.
type CategoryTotal struct {
	CategoryName string
	Total        decimal.Decimal
}

// ExpenseRepository handles expense database operations. Expenses are
// immutable after creation except soft delete; every read filters
// deleted rows out.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// WithDB returns a copy of the repository bound to the given executor.
// Used to run creation inside a transaction.
func (r *ExpenseRepository) WithDB(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Create adds a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (user_id, amount, category_id, chat_id, raw_text, message_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, expense.UserID, expense.Amount, expense.CategoryID, expense.ChatID,
		expense.RawText, expense.MessageID,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// UpdateCategory reassigns an expense to another category. Used when the
// user corrects a fallback categorization.
func (r *ExpenseRepository) UpdateCategory(ctx context.Context, id int, categoryID int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE expenses SET category_id = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, categoryID)
	if err != nil {
		return fmt.Errorf("failed to update expense category: %w", err)
	}
	return nil
}

// SoftDelete marks an expense deleted without removing history.
func (r *ExpenseRepository) SoftDelete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE expenses SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete expense: %w", err)
	}
	return nil
}

// GetRecentByUser retrieves a user's latest expenses with categories.
func (r *ExpenseRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]models.Expense, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.user_id, e.amount, e.category_id, e.chat_id, e.raw_text, e.message_id,
		       e.created_at, e.updated_at,
		       c.id, c.name, c.created_at
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.user_id = $1 AND e.deleted_at IS NULL
		ORDER BY e.created_at DESC, e.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		var catID *int
		var catName *string
		var catCreatedAt *time.Time

		if err := rows.Scan(
			&exp.ID, &exp.UserID, &exp.Amount, &exp.CategoryID, &exp.ChatID,
			&exp.RawText, &exp.MessageID, &exp.CreatedAt, &exp.UpdatedAt,
			&catID, &catName, &catCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if catID != nil {
			exp.Category = &models.Category{ID: *catID, Name: *catName, CreatedAt: *catCreatedAt}
		}
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// SumAbsByUser calculates the absolute-amount total for a user within the
// half-open timestamp window [start, end), optionally per category.
func (r *ExpenseRepository) SumAbsByUser(
	ctx context.Context,
	userID int64,
	start, end time.Time,
	categoryID *int,
) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(ABS(amount)), 0) FROM expenses
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND created_at >= $2 AND created_at < $3`
	args := []any{userID, start, end}
	if categoryID != nil {
		query += ` AND category_id = $4`
		args = append(args, *categoryID)
	}

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return total, nil
}

// SumAbsByChat calculates the absolute-amount total for a chat. Nil
// bounds mean an unbounded window; when present the window is
// start-inclusive, end-exclusive. Callers rely on the end-exclusive
// bound for month-rollover correctness.
func (r *ExpenseRepository) SumAbsByChat(
	ctx context.Context,
	chatID int64,
	start, end *time.Time,
) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(ABS(amount)), 0) FROM expenses
		WHERE chat_id = $1 AND deleted_at IS NULL`
	args := []any{chatID}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}

	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum chat expenses: %w", err)
	}
	return total, nil
}

// CategorySummaryByChat returns per-category absolute totals for a chat,
// largest first. Uncategorized expenses come back with an empty name.
func (r *ExpenseRepository) CategorySummaryByChat(
	ctx context.Context,
	chatID int64,
	start, end *time.Time,
) ([]CategoryTotal, error) {
	query := `
		SELECT COALESCE(c.name, ''), SUM(ABS(e.amount)) AS total
		FROM expenses e
		LEFT JOIN categories c ON e.category_id = c.id
		WHERE e.chat_id = $1 AND e.deleted_at IS NULL`
	args := []any{chatID}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(` AND e.created_at >= $%d`, len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(` AND e.created_at < $%d`, len(args))
	}
	query += `
		GROUP BY c.name
		ORDER BY total DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query category summary: %w", err)
	}
	defer rows.Close()

	var summary []CategoryTotal
	for rows.Next() {
		var row CategoryTotal
		if err := rows.Scan(&row.CategoryName, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		summary = append(summary, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category summary: %w", err)
	}
	return summary, nil
}

// MonthlyTotalsByUser returns month-bucketed absolute totals for a user.
func (r *ExpenseRepository) MonthlyTotalsByUser(ctx context.Context, userID int64) (map[time.Time]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('month', created_at)::date AS month, SUM(ABS(amount))
		FROM expenses
		WHERE user_id = $1 AND deleted_at IS NULL
		GROUP BY month
		ORDER BY month
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly expense totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[time.Time]decimal.Decimal)
	for rows.Next() {
		var month time.Time
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("failed to scan monthly total: %w", err)
		}
		totals[month] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly totals: %w", err)
	}
	return totals, nil
}
