package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/bot/mocks"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

func TestDefaultHandlerCore_UnknownCommand(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920001)

	update := mocks.NewUpdateBuilder().WithMessage(920001, 920001, "/unknowncmd").Build()
	b.defaultHandlerCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "Неизвестная команда")
}

func TestDefaultHandlerCore_IgnoresEmptyUpdate(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()

	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().Build())
	require.Empty(t, mock.SentMessages)
}

func TestDefaultHandlerCore_RecordsExpenseWithKnownCategory(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920002)

	update := mocks.NewUpdateBuilder().WithMessage(920002, 920002, "500 транспорт").Build()
	b.defaultHandlerCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "✅ 500 ₽ — Транспорт")

	expenses, err := b.expenseRepo.GetRecentByUser(ctx, 920002, 1)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	require.True(t, dec("500").Equal(expenses[0].Amount))
	require.Equal(t, "500 транспорт", expenses[0].RawText)
}

func TestDefaultHandlerCore_FallbackOffersFollowUp(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920003)

	update := mocks.NewUpdateBuilder().WithMessage(920003, 920003, "300 шиномонтаж").Build()
	b.defaultHandlerCore(ctx, mock, update)

	// Confirmation plus the follow-up offer.
	require.Len(t, mock.SentMessages, 2)
	require.Contains(t, mock.SentMessages[0].Text, "Прочее")
	require.Contains(t, mock.SentMessages[1].Text, "Создать новую категорию?")
	require.NotNil(t, mock.SentMessages[1].ReplyMarkup)

	expenses, err := b.expenseRepo.GetRecentByUser(ctx, 920003, 1)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	require.Contains(t, b.followUps, expenses[0].ID)
	require.Equal(t, "Шиномонтаж", b.followUps[expenses[0].ID])
}

func TestDefaultHandlerCore_RecordsIncome(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920004)

	update := mocks.NewUpdateBuilder().WithMessage(920004, 920004, "+50000 зарплата").Build()
	b.defaultHandlerCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "💰 Доход 50000 ₽")

	incomes, err := b.incomeRepo.GetRecentByUser(ctx, 920004, 1)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	require.True(t, dec("50000").Equal(incomes[0].Amount))
}

func TestDefaultHandlerCore_MultilineMessage(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920005)

	update := mocks.NewUpdateBuilder().WithMessage(920005, 920005, "500 транспорт\n+10000 премия").Build()
	b.defaultHandlerCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "✅ 500 ₽ — Транспорт")
	require.Contains(t, mock.SentMessages[0].Text, "💰 Доход 10000 ₽")
}

func TestHandleAmountOnly_StartsGuidedFlow(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920006)

	update := mocks.NewUpdateBuilder().WithMessage(920006, 920006, "500").Build()
	b.defaultHandlerCore(ctx, mock, update)

	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "Получил 500 ₽")
	require.NotNil(t, mock.SentMessages[0].ReplyMarkup)

	b.pendingMu.RLock()
	p := b.pending[920006]
	b.pendingMu.RUnlock()
	require.NotNil(t, p)
	require.True(t, dec("500").Equal(p.amount))
}

func TestHandleCategoryOnly_ThenAmountCompletes(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920007)

	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(920007, 920007, "кафе").Build())
	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "Сколько потратили?")

	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(920007, 920007, "450").Build())
	require.Len(t, mock.SentMessages, 2)
	require.Contains(t, mock.SentMessages[1].Text, "✅ 450 ₽ — Кафе И Рестораны")

	// The flow is consumed.
	b.pendingMu.RLock()
	_, ok := b.pending[920007]
	b.pendingMu.RUnlock()
	require.False(t, ok)

	expenses, err := b.expenseRepo.GetRecentByUser(ctx, 920007, 1)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
}

func TestHandleCategoryOnly_OtherUserStartsOwnEntry(t *testing.T) {
	b, mock, _ := newTestBot(t)
	ctx := context.Background()
	seedBotUser(t, ctx, b, 920010)
	seedBotUser(t, ctx, b, 920011)

	// 920010 starts a category-first entry in the shared chat.
	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(920010, 920010, "кафе").Build())
	require.Len(t, mock.SentMessages, 1)
	require.Contains(t, mock.SentMessages[0].Text, "Сколько потратили?")

	// A bare amount from another chat member does not complete it; they
	// get their own amount-first entry instead.
	b.defaultHandlerCore(ctx, mock, mocks.NewUpdateBuilder().WithMessage(920010, 920011, "450").Build())
	require.Len(t, mock.SentMessages, 2)
	require.Contains(t, mock.SentMessages[1].Text, "Получил 450 ₽")

	b.pendingMu.RLock()
	p := b.pending[920010]
	b.pendingMu.RUnlock()
	require.NotNil(t, p)
	require.Equal(t, int64(920011), p.userID)
	require.True(t, dec("450").Equal(p.amount))

	// Nothing was recorded for the original starter.
	expenses, err := b.expenseRepo.GetRecentByUser(ctx, 920010, 1)
	require.NoError(t, err)
	require.Empty(t, expenses)
}

func TestFormatRecommendation(t *testing.T) {
	t.Parallel()

	t.Run("overspend", func(t *testing.T) {
		t.Parallel()
		rec := &service.Recommendation{
			Kind:           service.PaceOverspend,
			Spent:          dec("20000"),
			Limit:          dec("30000"),
			ExpectedPace:   dec("10000"),
			Remaining:      dec("10000"),
			DaysPassed:     10,
			DaysRemaining:  20,
			DailyAllowance: dec("500"),
		}
		text := formatRecommendation(rec)
		require.Contains(t, text, "⚠️")
		require.Contains(t, text, "20000 ₽")
		require.Contains(t, text, "500 ₽ в день")
	})

	t.Run("good pace", func(t *testing.T) {
		t.Parallel()
		rec := &service.Recommendation{
			Kind:           service.PaceGood,
			Spent:          dec("5000"),
			Limit:          dec("30000"),
			DailyAllowance: dec("1250"),
		}
		text := formatRecommendation(rec)
		require.Contains(t, text, "👍")
		require.Contains(t, text, "1250 ₽ в день")
	})
}

func TestFmtMoney(t *testing.T) {
	t.Parallel()
	require.Equal(t, "1234.56 ₽", fmtMoney(dec("1234.56")))
	require.Equal(t, "500 ₽", fmtMoney(dec("500")))
}
