package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

func TestBuildReminderText(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 950001)

	now := time.Date(2026, 9, 15, 10, 30, 0, 0, time.UTC)

	t.Run("empty when nothing is due", func(t *testing.T) {
		text, err := b.buildReminderText(ctx, 950001, now)
		require.NoError(t, err)
		require.Empty(t, text)
	})

	amount := dec("85000")
	err := b.scheduleRepo.Create(ctx, &models.IncomeSchedule{
		UserID: 950001, Name: "Зарплата", DayOfMonth: 15,
		ExpectedAmount: &amount, IsActive: true,
	})
	require.NoError(t, err)

	_, err = b.planned.Create(ctx, 950001, dec("15000"), "страховка",
		time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	_, err = b.planned.Create(ctx, 950001, dec("3000"), "техосмотр",
		time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	t.Run("collects due schedules and plans", func(t *testing.T) {
		text, err := b.buildReminderText(ctx, 950001, now)
		require.NoError(t, err)

		require.Contains(t, text, "💰 Сегодня ожидается доход «Зарплата» (85000 ₽)")
		require.Contains(t, text, "📅 На сегодня запланировано: 15000 ₽ — страховка")
		require.Contains(t, text, "🔜 17.09.2026: 3000 ₽ — техосмотр")

		// Today's plan shows once, in the "today" section only.
		require.NotContains(t, text, "🔜 15.09.2026")
	})

	t.Run("payday only triggers on the scheduled day", func(t *testing.T) {
		text, err := b.buildReminderText(ctx, 950001, time.Date(2026, 9, 25, 10, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.NotContains(t, text, "Зарплата")
	})
}

func TestCheckAndSendReminders(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 950002)

	amount := dec("50000")
	err := b.scheduleRepo.Create(ctx, &models.IncomeSchedule{
		UserID: 950002, Name: "Зарплата", DayOfMonth: 15,
		ExpectedAmount: &amount, IsActive: true,
	})
	require.NoError(t, err)

	reminded := make(map[int64]string)

	t.Run("outside the reminder hour nothing happens", func(t *testing.T) {
		b.checkAndSendReminders(ctx, reminded, time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC))
		require.Empty(t, mock.SentMessages)
	})

	t.Run("sends once during the reminder hour", func(t *testing.T) {
		now := time.Date(2026, 9, 15, 10, 15, 0, 0, time.UTC)

		b.checkAndSendReminders(ctx, reminded, now)
		require.Len(t, mock.SentMessages, 1)
		require.Contains(t, mock.SentMessages[0].Text, "Зарплата")
		require.Equal(t, "2026-09-15", reminded[950002])

		// A later tick within the same hour is a no-op.
		b.checkAndSendReminders(ctx, reminded, now.Add(30*time.Minute))
		require.Len(t, mock.SentMessages, 1)
	})

	t.Run("next day resets the dedupe map", func(t *testing.T) {
		// October 15th: the schedule is due again and yesterday's mark is pruned.
		b.checkAndSendReminders(ctx, reminded, time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC))
		require.Len(t, mock.SentMessages, 2)
		require.Equal(t, "2026-10-15", reminded[950002])
	})
}
