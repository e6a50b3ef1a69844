package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

type fakeGoalStore struct {
	nextID int
	goals  []models.SavingGoal
}

func (s *fakeGoalStore) Create(_ context.Context, goal *models.SavingGoal) error {
	s.nextID++
	goal.ID = s.nextID
	s.goals = append(s.goals, *goal)
	return nil
}

func (s *fakeGoalStore) GetByUser(_ context.Context, userID int64) ([]models.SavingGoal, error) {
	var result []models.SavingGoal
	for _, g := range s.goals {
		if g.UserID == userID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (s *fakeGoalStore) GetActiveByUser(_ context.Context, userID int64) ([]models.SavingGoal, error) {
	var result []models.SavingGoal
	for _, g := range s.goals {
		if g.UserID == userID && !g.IsAchieved {
			result = append(result, g)
		}
	}
	return result, nil
}

func (s *fakeGoalStore) AddToCurrent(_ context.Context, userID int64, id int, amount decimal.Decimal) (*models.SavingGoal, error) {
	for i := range s.goals {
		if s.goals[i].ID == id && s.goals[i].UserID == userID {
			s.goals[i].CurrentAmount = s.goals[i].CurrentAmount.Add(amount)
			if s.goals[i].CurrentAmount.GreaterThanOrEqual(s.goals[i].TargetAmount) {
				s.goals[i].IsAchieved = true
			}
			g := s.goals[i]
			return &g, nil
		}
	}
	return nil, nil
}

func (s *fakeGoalStore) Delete(_ context.Context, userID int64, id int) error {
	for i := range s.goals {
		if s.goals[i].ID == id && s.goals[i].UserID == userID {
			s.goals = append(s.goals[:i], s.goals[i+1:]...)
			return nil
		}
	}
	return nil
}

func TestSavingGoals_ContributeAchieves(t *testing.T) {
	t.Parallel()
	store := &fakeGoalStore{}
	svc := NewSavingGoals(store)

	goal, err := svc.Create(context.Background(), testUserID, "Отпуск", dec("100000"), nil)
	require.NoError(t, err)

	updated, err := svc.Contribute(context.Background(), testUserID, goal.ID, dec("40000"))
	require.NoError(t, err)
	require.False(t, updated.IsAchieved)
	require.True(t, dec("40").Equal(updated.ProgressPercent()))

	updated, err = svc.Contribute(context.Background(), testUserID, goal.ID, dec("60000"))
	require.NoError(t, err)
	require.True(t, updated.IsAchieved)
	require.True(t, updated.Remaining().IsZero())
}

func TestSavingGoals_ContributeNegativeIsAbs(t *testing.T) {
	t.Parallel()
	store := &fakeGoalStore{}
	svc := NewSavingGoals(store)

	goal, err := svc.Create(context.Background(), testUserID, "Ремонт", dec("1000"), nil)
	require.NoError(t, err)

	updated, err := svc.Contribute(context.Background(), testUserID, goal.ID, dec("-300"))
	require.NoError(t, err)
	require.True(t, dec("300").Equal(updated.CurrentAmount))
}

func TestSavingGoals_DistributeEvenly(t *testing.T) {
	t.Parallel()
	store := &fakeGoalStore{}
	svc := NewSavingGoals(store)

	for _, name := range []string{"Первая", "Вторая", "Третья"} {
		_, err := svc.Create(context.Background(), testUserID, name, dec("100000"), nil)
		require.NoError(t, err)
	}

	updated, err := svc.Distribute(context.Background(), testUserID, dec("100"))
	require.NoError(t, err)
	require.Len(t, updated, 3)

	// 100/3 rounds to 33.33; the remainder 0.01 goes to the first goal.
	require.True(t, dec("33.34").Equal(updated[0].CurrentAmount), "got %s", updated[0].CurrentAmount)
	require.True(t, dec("33.33").Equal(updated[1].CurrentAmount))
	require.True(t, dec("33.33").Equal(updated[2].CurrentAmount))

	sum := updated[0].CurrentAmount.Add(updated[1].CurrentAmount).Add(updated[2].CurrentAmount)
	require.True(t, dec("100").Equal(sum))
}

func TestSavingGoals_DistributeSkipsAchievedAndEmpty(t *testing.T) {
	t.Parallel()
	store := &fakeGoalStore{}
	svc := NewSavingGoals(store)

	updated, err := svc.Distribute(context.Background(), testUserID, dec("100"))
	require.NoError(t, err)
	require.Empty(t, updated)

	goal, err := svc.Create(context.Background(), testUserID, "Готово", dec("10"), nil)
	require.NoError(t, err)
	_, err = svc.Contribute(context.Background(), testUserID, goal.ID, dec("10"))
	require.NoError(t, err)

	updated, err = svc.Distribute(context.Background(), testUserID, dec("100"))
	require.NoError(t, err)
	require.Empty(t, updated)

	updated, err = svc.Distribute(context.Background(), testUserID, dec("-5"))
	require.NoError(t, err)
	require.Empty(t, updated)
}

func TestSavingGoals_MonthlySavingNeeded(t *testing.T) {
	t.Parallel()
	svc := NewSavingGoals(&fakeGoalStore{})
	today := date(2025, time.March, 15)

	deadline := date(2025, time.August, 1)
	pastDeadline := date(2025, time.February, 1)

	tests := []struct {
		name string
		goal models.SavingGoal
		want *string
	}{
		{
			name: "five months out",
			goal: models.SavingGoal{TargetAmount: dec("100000"), CurrentAmount: dec("40000"), Deadline: &deadline},
			want: strPtr("12000"),
		},
		{
			name: "past deadline due in full",
			goal: models.SavingGoal{TargetAmount: dec("100000"), CurrentAmount: dec("40000"), Deadline: &pastDeadline},
			want: strPtr("60000"),
		},
		{
			name: "no deadline",
			goal: models.SavingGoal{TargetAmount: dec("100000"), CurrentAmount: dec("40000")},
			want: nil,
		},
		{
			name: "achieved",
			goal: models.SavingGoal{TargetAmount: dec("100000"), CurrentAmount: dec("100000"), Deadline: &deadline, IsAchieved: true},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svc.MonthlySavingNeeded(&tt.goal, today)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.True(t, dec(*tt.want).Equal(*got), "got %s", got)
		})
	}
}

func TestSavingGoalProgress(t *testing.T) {
	t.Parallel()

	zeroTarget := models.SavingGoal{TargetAmount: decimal.Zero, CurrentAmount: dec("50")}
	require.True(t, dec("100").Equal(zeroTarget.ProgressPercent()))
	require.True(t, zeroTarget.Remaining().IsZero())

	over := models.SavingGoal{TargetAmount: dec("100"), CurrentAmount: dec("150")}
	require.True(t, dec("150").Equal(over.ProgressPercent()))
	require.True(t, over.Remaining().IsZero())
}

func strPtr(s string) *string { return &s }
