package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// SavingGoalRepository handles saving goal database operations.
type SavingGoalRepository struct {
	db database.PGXDB
}

// NewSavingGoalRepository creates a new SavingGoalRepository.
func NewSavingGoalRepository(db database.PGXDB) *SavingGoalRepository {
	return &SavingGoalRepository{db: db}
}

// Create adds a new saving goal.
func (r *SavingGoalRepository) Create(ctx context.Context, goal *models.SavingGoal) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO saving_goals (user_id, name, target_amount, current_amount, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, goal.UserID, goal.Name, goal.TargetAmount, goal.CurrentAmount, goal.Deadline,
	).Scan(&goal.ID, &goal.CreatedAt, &goal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create saving goal: %w", err)
	}
	return nil
}

// GetByID retrieves a saving goal owned by the user.
// Returns (nil, nil) when it does not exist.
func (r *SavingGoalRepository) GetByID(ctx context.Context, userID int64, id int) (*models.SavingGoal, error) {
	var g models.SavingGoal
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, is_achieved,
		       created_at, updated_at
		FROM saving_goals
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(
		&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&g.Deadline, &g.IsAchieved, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saving goal: %w", err)
	}
	return &g, nil
}

// GetByUser retrieves all saving goals of a user, active first, then by
// creation order.
func (r *SavingGoalRepository) GetByUser(ctx context.Context, userID int64) ([]models.SavingGoal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, is_achieved,
		       created_at, updated_at
		FROM saving_goals
		WHERE user_id = $1
		ORDER BY is_achieved, created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query saving goals: %w", err)
	}
	defer rows.Close()

	var goals []models.SavingGoal
	for rows.Next() {
		var g models.SavingGoal
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
			&g.Deadline, &g.IsAchieved, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan saving goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saving goals: %w", err)
	}
	return goals, nil
}

// GetActiveByUser retrieves a user's unachieved goals in creation order.
func (r *SavingGoalRepository) GetActiveByUser(ctx context.Context, userID int64) ([]models.SavingGoal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, target_amount, current_amount, deadline, is_achieved,
		       created_at, updated_at
		FROM saving_goals
		WHERE user_id = $1 AND NOT is_achieved
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active saving goals: %w", err)
	}
	defer rows.Close()

	var goals []models.SavingGoal
	for rows.Next() {
		var g models.SavingGoal
		if err := rows.Scan(
			&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
			&g.Deadline, &g.IsAchieved, &g.CreatedAt, &g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan saving goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating saving goals: %w", err)
	}
	return goals, nil
}

// AddToCurrent atomically increases a goal's accumulated amount and flips
// the achieved flag once the target is reached. The flag never flips back.
// Returns the updated goal, or (nil, nil) when the goal does not exist.
func (r *SavingGoalRepository) AddToCurrent(ctx context.Context, userID int64, id int, amount decimal.Decimal) (*models.SavingGoal, error) {
	var g models.SavingGoal
	err := r.db.QueryRow(ctx, `
		UPDATE saving_goals
		SET current_amount = current_amount + $3,
		    is_achieved = is_achieved OR current_amount + $3 >= target_amount,
		    updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, name, target_amount, current_amount, deadline, is_achieved,
		          created_at, updated_at
	`, id, userID, amount).Scan(
		&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount,
		&g.Deadline, &g.IsAchieved, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add to saving goal: %w", err)
	}
	return &g, nil
}

// Delete removes a saving goal owned by the user.
func (r *SavingGoalRepository) Delete(ctx context.Context, userID int64, id int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM saving_goals WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete saving goal: %w", err)
	}
	return nil
}
