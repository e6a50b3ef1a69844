package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// GoalStore is the storage surface of the saving goal service.
type GoalStore interface {
	Create(ctx context.Context, goal *models.SavingGoal) error
	GetByUser(ctx context.Context, userID int64) ([]models.SavingGoal, error)
	GetActiveByUser(ctx context.Context, userID int64) ([]models.SavingGoal, error)
	AddToCurrent(ctx context.Context, userID int64, id int, amount decimal.Decimal) (*models.SavingGoal, error)
	Delete(ctx context.Context, userID int64, id int) error
}

// SavingGoals manages saving goals: contributions, even distribution and
// monthly-saving math.
type SavingGoals struct {
	goals GoalStore
}

// NewSavingGoals creates a SavingGoals service.
func NewSavingGoals(goals GoalStore) *SavingGoals {
	return &SavingGoals{goals: goals}
}

// Create adds a goal. Deadline is optional.
func (s *SavingGoals) Create(ctx context.Context, userID int64, name string, target decimal.Decimal, deadline *time.Time) (*models.SavingGoal, error) {
	goal := &models.SavingGoal{
		UserID:        userID,
		Name:          name,
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
		Deadline:      deadline,
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// Contribute adds an amount to a goal. Reaching the target flips the
// achieved flag; it never flips back since there is no withdrawal.
func (s *SavingGoals) Contribute(ctx context.Context, userID int64, goalID int, amount decimal.Decimal) (*models.SavingGoal, error) {
	goal, err := s.goals.AddToCurrent(ctx, userID, goalID, amount.Abs())
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("saving goal %d not found", goalID)
	}
	return goal, nil
}

// Distribute splits a total evenly across the user's active goals,
// rounding each share to 2 decimals and giving the remainder to the first
// goal so the shares sum exactly to the total. Returns the updated goals,
// empty when there is nothing to distribute to.
func (s *SavingGoals) Distribute(ctx context.Context, userID int64, total decimal.Decimal) ([]models.SavingGoal, error) {
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}
	active, err := s.goals.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}

	count := decimal.NewFromInt(int64(len(active)))
	perGoal := total.Div(count).Round(2)
	remainder := total.Sub(perGoal.Mul(count))

	updated := make([]models.SavingGoal, 0, len(active))
	for i, goal := range active {
		share := perGoal
		if i == 0 {
			share = share.Add(remainder)
		}
		g, err := s.goals.AddToCurrent(ctx, userID, goal.ID, share)
		if err != nil {
			return nil, err
		}
		if g == nil {
			continue
		}
		updated = append(updated, *g)
	}
	return updated, nil
}

// List returns all goals of a user, active first.
func (s *SavingGoals) List(ctx context.Context, userID int64) ([]models.SavingGoal, error) {
	return s.goals.GetByUser(ctx, userID)
}

// MonthlySavingNeeded returns how much to put aside per month to reach
// the goal by its deadline, rounded to 2 decimals. Returns nil for
// achieved or deadline-free goals; a past or current-month deadline means
// the whole remainder is due now.
func (s *SavingGoals) MonthlySavingNeeded(goal *models.SavingGoal, today time.Time) *decimal.Decimal {
	if goal.IsAchieved || goal.Deadline == nil {
		return nil
	}

	remaining := goal.Remaining()
	if !goal.Deadline.After(today) {
		return &remaining
	}

	monthsRemaining := (goal.Deadline.Year()-today.Year())*12 + int(goal.Deadline.Month()) - int(today.Month())
	if monthsRemaining <= 0 {
		return &remaining
	}

	needed := remaining.Div(decimal.NewFromInt(int64(monthsRemaining))).Round(2)
	return &needed
}

// Delete removes a goal owned by the user.
func (s *SavingGoals) Delete(ctx context.Context, userID int64, id int) error {
	return s.goals.Delete(ctx, userID, id)
}
