package bot

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/bot/mocks"
	"gitlab.com/mkovalev/budget-bot/internal/config"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
	"gitlab.com/mkovalev/budget-bot/internal/parser"
	"gitlab.com/mkovalev/budget-bot/internal/repository"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestBot wires a Bot against a rolled-back test transaction with a
// MockBot as the Telegram surface. Handlers are exercised through their
// Core methods, so no real bot connection is needed.
func newTestBot(t *testing.T) (*Bot, *mocks.MockBot, database.PGXDB) {
	t.Helper()

	tx := database.TestTx(t)
	beginner, ok := tx.(database.TxBeginner)
	require.True(t, ok, "test transaction must support nested transactions")

	cfg := &config.Config{
		RemindersEnabled: true,
		ReminderHour:     10,
		ReminderTimezone: "Europe/Moscow",
	}
	lex := parser.DefaultLexicon()

	userRepo := repository.NewUserRepository(tx)
	categoryRepo := repository.NewCategoryRepository(tx)
	expenseRepo := repository.NewExpenseRepository(tx)
	incomeRepo := repository.NewIncomeRepository(tx)
	budgetRepo := repository.NewBudgetRepository(tx)
	vacationRepo := repository.NewVacationRepository(tx)
	plannedRepo := repository.NewPlannedExpenseRepository(tx)
	goalRepo := repository.NewSavingGoalRepository(tx)
	scheduleRepo := repository.NewIncomeScheduleRepository(tx)

	resolver := service.NewCategoryResolver(categoryRepo)

	mock := mocks.NewMockBot()
	b := &Bot{
		api:          mock,
		cfg:          cfg,
		lex:          lex,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
		expenseRepo:  expenseRepo,
		incomeRepo:   incomeRepo,
		budgetRepo:   budgetRepo,
		vacationRepo: vacationRepo,
		scheduleRepo: scheduleRepo,
		parser:       parser.New(lex),
		resolver:     resolver,
		tracker:      service.NewTracker(resolver, expenseRepo, incomeRepo),
		planner:      service.NewBudgetPlanner(budgetRepo, vacationRepo, expenseRepo, plannedRepo),
		reporter:     service.NewReporter(expenseRepo, lex.Uncategorized),
		cashflow:     service.NewCashflowService(expenseRepo, incomeRepo),
		planned:      service.NewPlannedExpenses(beginner, plannedRepo, expenseRepo),
		goals:        service.NewSavingGoals(goalRepo),
		remind:       service.NewReminders(scheduleRepo, plannedRepo),
		pending:      make(map[int64]*pendingEntry),
		followUps:    make(map[int]string),
	}
	return b, mock, tx
}

func seedBotUser(t *testing.T, ctx context.Context, b *Bot, id int64) {
	t.Helper()
	err := b.userRepo.Upsert(ctx, &models.User{ID: id, Username: "tester", FirstName: "Test"})
	require.NoError(t, err)
}
