package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

func TestPlannedExpenseRepository_CreateAndGet(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewPlannedExpenseRepository(tx)
	seedTestUser(t, ctx, tx, 910801)

	pe := &models.PlannedExpense{
		UserID:      910801,
		Amount:      dec("15000"),
		Description: "страховка",
		PlannedDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, pe))
	require.NotZero(t, pe.ID)

	t.Run("owner reads it back", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 910801, pe.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Equal(t, "страховка", got.Description)
		require.False(t, got.IsCompleted)
		require.Nil(t, got.LinkedExpenseID)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		got, err := repo.GetByID(ctx, 910999, pe.ID)
		require.NoError(t, err)
		require.Nil(t, got)
	})
}

func TestPlannedExpenseRepository_GetPendingByUser(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewPlannedExpenseRepository(tx)
	expRepo := NewExpenseRepository(tx)
	seedTestUser(t, ctx, tx, 910802)

	create := func(desc string, date time.Time) *models.PlannedExpense {
		pe := &models.PlannedExpense{UserID: 910802, Amount: dec("1000"), Description: desc, PlannedDate: date}
		require.NoError(t, repo.Create(ctx, pe))
		return pe
	}
	later := create("позже", time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC))
	sooner := create("раньше", time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC))
	completed := create("оплачено", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))

	expense := &models.Expense{UserID: 910802, Amount: dec("1000"), RawText: "1000"}
	require.NoError(t, expRepo.Create(ctx, expense))
	done, err := repo.MarkCompleted(ctx, completed.ID, expense.ID)
	require.NoError(t, err)
	require.True(t, done)

	pending, err := repo.GetPendingByUser(ctx, 910802)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, sooner.ID, pending[0].ID)
	require.Equal(t, later.ID, pending[1].ID)
}

func TestPlannedExpenseRepository_GetPendingInRange(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewPlannedExpenseRepository(tx)
	seedTestUser(t, ctx, tx, 910803)

	create := func(date time.Time) *models.PlannedExpense {
		pe := &models.PlannedExpense{UserID: 910803, Amount: dec("500"), PlannedDate: date}
		require.NoError(t, repo.Create(ctx, pe))
		return pe
	}
	onFrom := create(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	inside := create(time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC))
	onTo := create(time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC))
	create(time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC))

	// Both bounds are date-inclusive.
	planned, err := repo.GetPendingInRange(ctx, 910803,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, planned, 3)
	require.Equal(t, onFrom.ID, planned[0].ID)
	require.Equal(t, inside.ID, planned[1].ID)
	require.Equal(t, onTo.ID, planned[2].ID)
}

func TestPlannedExpenseRepository_MarkCompleted(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewPlannedExpenseRepository(tx)
	expRepo := NewExpenseRepository(tx)
	seedTestUser(t, ctx, tx, 910804)

	pe := &models.PlannedExpense{
		UserID: 910804, Amount: dec("3000"),
		PlannedDate: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, pe))

	expense := &models.Expense{UserID: 910804, Amount: dec("3000"), RawText: "3000"}
	require.NoError(t, expRepo.Create(ctx, expense))

	done, err := repo.MarkCompleted(ctx, pe.ID, expense.ID)
	require.NoError(t, err)
	require.True(t, done)

	got, err := repo.GetByID(ctx, 910804, pe.ID)
	require.NoError(t, err)
	require.True(t, got.IsCompleted)
	require.NotNil(t, got.LinkedExpenseID)
	require.Equal(t, expense.ID, *got.LinkedExpenseID)

	t.Run("second completion reports no rows changed", func(t *testing.T) {
		done, err := repo.MarkCompleted(ctx, pe.ID, expense.ID)
		require.NoError(t, err)
		require.False(t, done)
	})
}

func TestPlannedExpenseRepository_Delete(t *testing.T) {
	tx := database.TestTx(t)
	ctx := context.Background()
	repo := NewPlannedExpenseRepository(tx)
	seedTestUser(t, ctx, tx, 910805)

	pe := &models.PlannedExpense{
		UserID: 910805, Amount: dec("700"),
		PlannedDate: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, pe))

	t.Run("wrong owner is a no-op", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 910999, pe.ID))

		got, err := repo.GetByID(ctx, 910805, pe.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("owner can delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 910805, pe.ID))

		got, err := repo.GetByID(ctx, 910805, pe.ID)
		require.NoError(t, err)
		require.Nil(t, got)
	})
}
