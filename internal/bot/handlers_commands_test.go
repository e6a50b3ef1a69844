package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/bot/mocks"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

func TestExtractCommandArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		command string
		want    string
	}{
		{name: "no args", text: "/budget", command: "/budget", want: ""},
		{name: "simple args", text: "/setbudget 30000", command: "/setbudget", want: "30000"},
		{name: "strips bot mention", text: "/setbudget@family_bot 30000", command: "/setbudget", want: "30000"},
		{name: "mention without args", text: "/budget@family_bot", command: "/budget", want: ""},
		{name: "multi-word args", text: "/goal Отпуск 100000", command: "/goal", want: "Отпуск 100000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, extractCommandArgs(tt.text, tt.command))
		})
	}
}

func TestReportPeriod(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

	t.Run("all time", func(t *testing.T) {
		t.Parallel()
		p := reportPeriod("все", now)
		require.Nil(t, p.Start)
		require.Nil(t, p.End)
		require.Equal(t, "всё время", p.Label)
	})

	t.Run("week covers the last 7 days", func(t *testing.T) {
		t.Parallel()
		p := reportPeriod("неделя", now)
		require.NotNil(t, p.Start)
		require.NotNil(t, p.End)
		require.Equal(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), *p.Start)
		require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *p.End)
	})

	t.Run("default is the current month", func(t *testing.T) {
		t.Parallel()
		p := reportPeriod("", now)
		require.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *p.Start)
		require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *p.End)
		require.Equal(t, "08.2026", p.Label)
	})
}

func TestHandleStartCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()

	update := mocks.NewUpdateBuilder().WithMessage(940001, 940001, "/start").Build()
	b.handleStartCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "Привет, Test")
	require.Contains(t, mock.SentMessages[0].Text, "/help")
}

func TestHandleHelpCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()

	update := mocks.NewUpdateBuilder().WithMessage(940002, 940002, "/help").Build()
	b.handleHelpCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	for _, cmd := range []string{"/report", "/setbudget", "/carryover", "/plan", "/goal", "/schedule"} {
		require.Contains(t, mock.SentMessages[0].Text, cmd)
	}
}

func TestHandleCategoriesCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()

	update := mocks.NewUpdateBuilder().WithMessage(940003, 940003, "/categories").Build()
	b.handleCategoriesCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "📂 Категории:")
	require.Contains(t, mock.SentMessages[0].Text, "• Продукты")
}

func TestHandleSetBudgetCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940004)

	t.Run("aggregate limit", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940004, 940004, "/setbudget 30000").Build()
		b.handleSetBudgetCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "✅ Месячный лимит 30000 ₽ на все расходы")

		budget, err := b.budgetRepo.GetTemplate(ctx, 940004, nil)
		require.NoError(t, err)
		require.NotNil(t, budget)
		require.True(t, dec("30000").Equal(budget.Limit))
	})

	t.Run("category limit", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940004, 940004, "/setbudget 5000 продукты").Build()
		b.handleSetBudgetCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "на категорию «Продукты»")
	})

	t.Run("usage hint without args", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940004, 940004, "/setbudget").Build()
		b.handleSetBudgetCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Использование")
	})

	t.Run("comma decimal amount", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940004, 940004, "/setbudget 30500,50").Build()
		b.handleSetBudgetCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "30500.5 ₽")
	})
}

func TestHandleBudgetCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940005)

	t.Run("not configured", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940005, 940005, "/budget").Build()
		b.handleBudgetCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Бюджет ещё не задан")
	})

	t.Run("status after setbudget", func(t *testing.T) {
		b.handleSetBudgetCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(940005, 940005, "/setbudget 30000").Build())

		update := mocks.NewUpdateBuilder().WithMessage(940005, 940005, "/budget").Build()
		b.handleBudgetCore(ctx, mock, update)

		text := mock.LastMessage().Text
		require.Contains(t, text, "📋 Бюджет на")
		require.Contains(t, text, "Лимит: 30000 ₽")
		require.Contains(t, text, "Потрачено: 0 ₽")
	})
}

func TestHandleCarryOverCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940006)

	t.Run("nothing to carry without a plan", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940006, 940006, "/carryover").Build()
		b.handleCarryOverCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "остатка нет")
	})

	t.Run("proposes leftover with confirmation keyboard", func(t *testing.T) {
		fromMonth := service.MonthStart(time.Now()).AddDate(0, -1, 0)
		_, err := b.budgetRepo.CreatePlanIfAbsent(ctx, 940006, fromMonth, nil, dec("25000"))
		require.NoError(t, err)

		update := mocks.NewUpdateBuilder().WithMessage(940006, 940006, "/carryover").Build()
		b.handleCarryOverCore(ctx, mock, update)

		msg := mock.LastMessage()
		require.Contains(t, msg.Text, "остался 25000 ₽")
		require.NotNil(t, msg.ReplyMarkup)
	})

	t.Run("unknown category", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940006, 940006, "/carryover несуществующая").Build()
		b.handleCarryOverCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Категория не найдена")
	})
}

func TestHandleVacationCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940007)

	t.Run("empty list", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940007, 940007, "/vacation").Build()
		b.handleVacationCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Периодов отпуска нет")
	})

	t.Run("creates a period", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940007, 940007, "/vacation 01.07.2026 15.07.2026 1,5 Сочи").Build()
		b.handleVacationCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "✅ Отпуск 01.07.2026 – 15.07.2026")

		periods, err := b.vacationRepo.GetByUser(ctx, 940007)
		require.NoError(t, err)
		require.Len(t, periods, 1)
		require.Equal(t, "Сочи", periods[0].Description)
		require.True(t, dec("1.5").Equal(periods[0].BudgetMultiplier))
	})

	t.Run("rejects inverted dates", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940007, 940007, "/vacation 15.07.2026 01.07.2026 1.5").Build()
		b.handleVacationCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Использование")
	})

	t.Run("deletes a period", func(t *testing.T) {
		periods, err := b.vacationRepo.GetByUser(ctx, 940007)
		require.NoError(t, err)
		require.Len(t, periods, 1)

		update := mocks.NewUpdateBuilder().
			WithMessage(940007, 940007, fmt.Sprintf("/vacation del %d", periods[0].ID)).
			Build()
		b.handleVacationCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "удалён")

		periods, err = b.vacationRepo.GetByUser(ctx, 940007)
		require.NoError(t, err)
		require.Empty(t, periods)
	})
}

func TestHandlePlannedFlow(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940008)

	t.Run("empty list", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940008, 940008, "/planned").Build()
		b.handlePlannedListCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Запланированных трат нет")
	})

	t.Run("creates a plan", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940008, 940008, "/plan 15000 25.12.2030 страховка").Build()
		b.handlePlanCreateCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "✅ Запланировал 15000 ₽")
	})

	t.Run("lists upcoming", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940008, 940008, "/planned").Build()
		b.handlePlannedListCore(ctx, mock, update)

		text := mock.LastMessage().Text
		require.Contains(t, text, "📅 Предстоящие:")
		require.Contains(t, text, "страховка")
	})

	t.Run("done records the expense", func(t *testing.T) {
		pending, err := b.planned.Upcoming(ctx, 940008, time.Now(), 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)

		update := mocks.NewUpdateBuilder().
			WithMessage(940008, 940008, fmt.Sprintf("/done %d", pending[0].ID)).
			Build()
		b.handlePlannedDoneCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "✅ Записал расход 15000 ₽")

		expenses, err := b.expenseRepo.GetRecentByUser(ctx, 940008, 1)
		require.NoError(t, err)
		require.Len(t, expenses, 1)
		require.True(t, dec("15000").Equal(expenses[0].Amount))

		// A second /done reports the conflict.
		b.handlePlannedDoneCore(ctx, mock, update)
		require.Contains(t, mock.LastMessage().Text, "уже отмечена выполненной")
	})
}

func TestHandleGoalsFlow(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940009)

	t.Run("empty list", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940009, 940009, "/goals").Build()
		b.handleGoalsCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Целей накопления нет")
	})

	t.Run("creates a goal with a multi-word name", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940009, 940009, "/goal Новая машина 100000").Build()
		b.handleGoalCreateCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Цель «Новая машина» на 100000 ₽")
	})

	t.Run("creates a goal with a deadline", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940009, 940009, "/goal Отпуск 60000 31.12.2030").Build()
		b.handleGoalCreateCore(ctx, mock, update)

		text := mock.LastMessage().Text
		require.Contains(t, text, "Цель «Отпуск» на 60000 ₽")
		require.Contains(t, text, "откладывайте")
	})

	t.Run("contribution and achievement", func(t *testing.T) {
		goals, err := b.goals.List(ctx, 940009)
		require.NoError(t, err)
		require.Len(t, goals, 2)
		goalID := goals[0].ID

		update := mocks.NewUpdateBuilder().
			WithMessage(940009, 940009, fmt.Sprintf("/save %d 40000", goalID)).
			Build()
		b.handleGoalSaveCore(ctx, mock, update)
		require.Contains(t, mock.LastMessage().Text, "40000 ₽ из 100000 ₽ (40%)")

		update = mocks.NewUpdateBuilder().
			WithMessage(940009, 940009, fmt.Sprintf("/save %d 60000", goalID)).
			Build()
		b.handleGoalSaveCore(ctx, mock, update)
		require.Contains(t, mock.LastMessage().Text, "🎉 Цель «Новая машина» достигнута")
	})

	t.Run("distribute splits across active goals", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940009, 940009, "/distribute 10000").Build()
		b.handleGoalDistributeCore(ctx, mock, update)

		text := mock.LastMessage().Text
		require.Contains(t, text, "✅ Распределил 10000 ₽")
		require.Contains(t, text, "Отпуск: 10000 ₽ из 60000 ₽")
	})
}

func TestHandleScheduleCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940010)

	t.Run("empty list", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940010, 940010, "/schedule").Build()
		b.handleScheduleCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "Напоминаний о доходах нет")
	})

	t.Run("creates a schedule with expected amount", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940010, 940010, "/schedule 25 Зарплата 85000").Build()
		b.handleScheduleCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "✅ Буду напоминать о «Зарплата» 25 числа")

		schedules, err := b.scheduleRepo.GetActiveByUser(ctx, 940010)
		require.NoError(t, err)
		require.Len(t, schedules, 1)
		require.NotNil(t, schedules[0].ExpectedAmount)
		require.True(t, dec("85000").Equal(*schedules[0].ExpectedAmount))
	})

	t.Run("rejects an invalid day", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940010, 940010, "/schedule 32 Зарплата").Build()
		b.handleScheduleCore(ctx, mock, update)

		require.Contains(t, mock.LastMessage().Text, "от 1 до 31")
	})

	t.Run("lists and deactivates", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940010, 940010, "/schedule").Build()
		b.handleScheduleCore(ctx, mock, update)
		require.Contains(t, mock.LastMessage().Text, "Зарплата — 25 числа, ожидается 85000 ₽")

		schedules, err := b.scheduleRepo.GetActiveByUser(ctx, 940010)
		require.NoError(t, err)
		require.Len(t, schedules, 1)

		update = mocks.NewUpdateBuilder().
			WithMessage(940010, 940010, fmt.Sprintf("/schedule del %d", schedules[0].ID)).
			Build()
		b.handleScheduleCore(ctx, mock, update)
		require.Contains(t, mock.LastMessage().Text, "отключено")
	})
}

func TestHandleReportCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940011)

	t.Run("empty chat", func(t *testing.T) {
		update := mocks.NewUpdateBuilder().WithMessage(940011, 940011, "/report").Build()
		b.handleReportCore(ctx, mock, update)

		text := mock.LastMessage().Text
		require.Contains(t, text, "📊 Отчёт за")
		require.Contains(t, text, "Всего: 0 ₽")
		require.Empty(t, mock.SentPhotos)
	})

	t.Run("with expenses sends a chart", func(t *testing.T) {
		b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(940011, 940011, "500 транспорт").Build())
		b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(940011, 940011, "1200 продукты").Build())

		update := mocks.NewUpdateBuilder().WithMessage(940011, 940011, "/report").Build()
		b.handleReportCore(ctx, mock, update)

		text := mock.LastMessage().Text
		require.Contains(t, text, "Всего: 1700 ₽")
		require.Contains(t, text, "• Продукты: 1200 ₽")
		require.Contains(t, text, "• Транспорт: 500 ₽")

		// Two categories, so a pie chart follows the text.
		require.Len(t, mock.SentPhotos, 1)
	})
}

func TestHandleCashflowCore(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 940012)

	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(940012, 940012, "+50000 зарплата").Build())
	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(940012, 940012, "10000 продукты").Build())

	update := mocks.NewUpdateBuilder().WithMessage(940012, 940012, "/cashflow").Build()
	b.handleCashflowCore(ctx, mock, update)

	text := mock.LastMessage().Text
	require.Contains(t, text, "💵 Денежный поток")
	require.Contains(t, text, "Доходы: 50000 ₽")
	require.Contains(t, text, "Расходы: 10000 ₽")
	require.Contains(t, text, "Итог: 40000 ₽")
	require.Contains(t, text, "Норма сбережений: 80%")
}
