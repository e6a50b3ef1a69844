package repository

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// VacationRepository handles vacation period database operations.
type VacationRepository struct {
	db database.PGXDB
}

// NewVacationRepository creates a new VacationRepository.
func NewVacationRepository(db database.PGXDB) *VacationRepository {
	return &VacationRepository{db: db}
}

// Create adds a new vacation period.
func (r *VacationRepository) Create(ctx context.Context, v *models.VacationPeriod) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO vacation_periods (user_id, start_date, end_date, budget_multiplier, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, v.UserID, v.StartDate, v.EndDate, v.BudgetMultiplier, v.Description,
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create vacation period: %w", err)
	}
	return nil
}

// Delete removes a vacation period owned by the user.
func (r *VacationRepository) Delete(ctx context.Context, userID int64, id int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM vacation_periods WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete vacation period: %w", err)
	}
	return nil
}

// GetByUser retrieves all vacation periods of a user ordered by start date.
func (r *VacationRepository) GetByUser(ctx context.Context, userID int64) ([]models.VacationPeriod, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, start_date, end_date, budget_multiplier, description, created_at
		FROM vacation_periods
		WHERE user_id = $1
		ORDER BY start_date
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vacation periods: %w", err)
	}
	defer rows.Close()

	var periods []models.VacationPeriod
	for rows.Next() {
		var v models.VacationPeriod
		if err := rows.Scan(&v.ID, &v.UserID, &v.StartDate, &v.EndDate, &v.BudgetMultiplier, &v.Description, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vacation period: %w", err)
		}
		periods = append(periods, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vacation periods: %w", err)
	}
	return periods, nil
}

// GetOverlappingMonth retrieves the user's vacation periods that overlap
// the calendar month starting at monthStart. Overlap is date-inclusive on
// both ends.
func (r *VacationRepository) GetOverlappingMonth(ctx context.Context, userID int64, monthStart time.Time) ([]models.VacationPeriod, error) {
	monthEnd := monthStart.AddDate(0, 1, -1)
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, start_date, end_date, budget_multiplier, description, created_at
		FROM vacation_periods
		WHERE user_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date
	`, userID, monthStart, monthEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping vacation periods: %w", err)
	}
	defer rows.Close()

	var periods []models.VacationPeriod
	for rows.Next() {
		var v models.VacationPeriod
		if err := rows.Scan(&v.ID, &v.UserID, &v.StartDate, &v.EndDate, &v.BudgetMultiplier, &v.Description, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vacation period: %w", err)
		}
		periods = append(periods, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vacation periods: %w", err)
	}
	return periods, nil
}
