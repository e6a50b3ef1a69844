package repository

import (
	"context"
	"fmt"

	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// IncomeScheduleRepository handles recurring payday database operations.
type IncomeScheduleRepository struct {
	db database.PGXDB
}

// NewIncomeScheduleRepository creates a new IncomeScheduleRepository.
func NewIncomeScheduleRepository(db database.PGXDB) *IncomeScheduleRepository {
	return &IncomeScheduleRepository{db: db}
}

// Create adds a new income schedule.
func (r *IncomeScheduleRepository) Create(ctx context.Context, s *models.IncomeSchedule) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO income_schedules (user_id, name, day_of_month, expected_amount, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, s.UserID, s.Name, s.DayOfMonth, s.ExpectedAmount, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create income schedule: %w", err)
	}
	return nil
}

// GetActiveByUser retrieves a user's active schedules by day of month.
func (r *IncomeScheduleRepository) GetActiveByUser(ctx context.Context, userID int64) ([]models.IncomeSchedule, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, day_of_month, expected_amount, is_active, created_at, updated_at
		FROM income_schedules
		WHERE user_id = $1 AND is_active
		ORDER BY day_of_month, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query income schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.IncomeSchedule
	for rows.Next() {
		var s models.IncomeSchedule
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.DayOfMonth, &s.ExpectedAmount, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan income schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating income schedules: %w", err)
	}
	return schedules, nil
}

// Deactivate turns a schedule off without deleting its history.
func (r *IncomeScheduleRepository) Deactivate(ctx context.Context, userID int64, id int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE income_schedules
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate income schedule: %w", err)
	}
	return nil
}
