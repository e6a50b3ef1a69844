package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// IncomeRepository handles income database operations. Incomes are stored
// with positive amounts; direction lives in the table, not the sign.
type IncomeRepository struct {
	db database.PGXDB
}

// NewIncomeRepository creates a new IncomeRepository.
func NewIncomeRepository(db database.PGXDB) *IncomeRepository {
	return &IncomeRepository{db: db}
}

// Create adds a new income entry.
func (r *IncomeRepository) Create(ctx context.Context, income *models.Income) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO incomes (user_id, amount, category_id, description, chat_id, raw_text, message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, income.UserID, income.Amount, income.CategoryID, income.Description,
		income.ChatID, income.RawText, income.MessageID,
	).Scan(&income.ID, &income.CreatedAt, &income.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income: %w", err)
	}
	return nil
}

// SoftDelete marks an income entry deleted.
func (r *IncomeRepository) SoftDelete(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE incomes SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to soft-delete income: %w", err)
	}
	return nil
}

// GetRecentByUser retrieves a user's latest income entries.
func (r *IncomeRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]models.Income, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, amount, category_id, description, chat_id, raw_text, message_id,
		       created_at, updated_at
		FROM incomes
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incomes: %w", err)
	}
	defer rows.Close()

	var incomes []models.Income
	for rows.Next() {
		var inc models.Income
		if err := rows.Scan(
			&inc.ID, &inc.UserID, &inc.Amount, &inc.CategoryID, &inc.Description,
			&inc.ChatID, &inc.RawText, &inc.MessageID, &inc.CreatedAt, &inc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan income: %w", err)
		}
		incomes = append(incomes, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incomes: %w", err)
	}
	return incomes, nil
}

// SumByUser calculates the income total for a user within the half-open
// timestamp window [start, end).
func (r *IncomeRepository) SumByUser(ctx context.Context, userID int64, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM incomes
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND created_at >= $2 AND created_at < $3
	`, userID, start, end).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum incomes: %w", err)
	}
	return total, nil
}

// MonthlyTotalsByUser returns month-bucketed income totals for a user.
func (r *IncomeRepository) MonthlyTotalsByUser(ctx context.Context, userID int64) (map[time.Time]decimal.Decimal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date_trunc('month', created_at)::date AS month, SUM(amount)
		FROM incomes
		WHERE user_id = $1 AND deleted_at IS NULL
		GROUP BY month
		ORDER BY month
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly income totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[time.Time]decimal.Decimal)
	for rows.Next() {
		var month time.Time
		var total decimal.Decimal
		if err := rows.Scan(&month, &total); err != nil {
			return nil, fmt.Errorf("failed to scan monthly income total: %w", err)
		}
		totals[month] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating monthly income totals: %w", err)
	}
	return totals, nil
}
