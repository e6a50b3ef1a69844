package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/parser"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

// pendingEntry is the per-chat state of the guided quick-entry flow.
// Either amount or categoryText is set by the starting message; the
// other half arrives via a follow-up message or callback. userID is
// the user who started the entry; only they may complete or cancel
// it. Another user's message in the same chat replaces the pending
// entry with a fresh one of their own.
type pendingEntry struct {
	userID       int64
	amount       decimal.Decimal
	categoryText string
	messageID    int
	rawText      string
}

// fmtMoney renders a decimal for user-facing messages.
func fmtMoney(d decimal.Decimal) string {
	return d.String() + " ₽"
}

// defaultHandler routes free-text messages that are not commands.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

// defaultHandlerCore is the testable implementation of defaultHandler.
func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "Неизвестная команда. Отправьте /help для списка команд.",
		})
		return
	}

	switch b.parser.Detect(msg.Text) {
	case parser.KindAmountOnly:
		b.handleAmountOnly(ctx, tg, msg)
	case parser.KindCategoryOnly:
		b.handleCategoryOnly(ctx, tg, msg)
	case parser.KindTransactions:
		b.recordTransactions(ctx, tg, msg)
	case parser.KindNone:
	}
}

// handleAmountOnly starts (or completes) the guided quick-entry flow for
// a bare amount message.
func (b *Bot) handleAmountOnly(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message) {
	amount, err := b.parser.ExtractAmount(msg.Text)
	if err != nil {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "Не удалось распознать сумму. Пример: 500 или 1 234,56",
		})
		return
	}

	b.pendingMu.Lock()
	prev := b.pending[msg.Chat.ID]
	if prev != nil && prev.userID == msg.From.ID && prev.categoryText != "" {
		delete(b.pending, msg.Chat.ID)
		b.pendingMu.Unlock()
		b.completeQuickExpense(ctx, tg, msg.Chat.ID, msg.From.ID, amount, prev.categoryText, msg.ID, msg.Text)
		return
	}
	b.pending[msg.Chat.ID] = &pendingEntry{
		userID:    msg.From.ID,
		amount:    amount,
		messageID: msg.ID,
		rawText:   msg.Text,
	}
	b.pendingMu.Unlock()

	kb := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "💸 Расход", CallbackData: "qe_expense"},
				{Text: "💰 Доход", CallbackData: "qe_income"},
			},
			{
				{Text: "❌ Отмена", CallbackData: "qe_cancel"},
			},
		},
	}
	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        fmt.Sprintf("Получил %s. Это расход или доход?", fmtMoney(amount)),
		ReplyMarkup: kb,
	})
}

// handleCategoryOnly handles a digit-free message: it either completes a
// pending quick entry or starts one waiting for the amount.
func (b *Bot) handleCategoryOnly(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message) {
	text := strings.TrimSpace(msg.Text)

	b.pendingMu.Lock()
	prev := b.pending[msg.Chat.ID]
	if prev != nil && prev.userID == msg.From.ID && !prev.amount.IsZero() {
		delete(b.pending, msg.Chat.ID)
		b.pendingMu.Unlock()
		b.completeQuickExpense(ctx, tg, msg.Chat.ID, msg.From.ID, prev.amount, text, prev.messageID, prev.rawText)
		return
	}
	b.pending[msg.Chat.ID] = &pendingEntry{
		userID:       msg.From.ID,
		categoryText: text,
		messageID:    msg.ID,
		rawText:      msg.Text,
	}
	b.pendingMu.Unlock()

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: msg.Chat.ID,
		Text:   fmt.Sprintf("Категория «%s». Сколько потратили? Отправьте сумму.", text),
	})
}

// completeQuickExpense records a single expense assembled by the guided
// flow and sends the usual confirmation.
func (b *Bot) completeQuickExpense(
	ctx context.Context,
	tg TelegramAPI,
	chatID, userID int64,
	amount decimal.Decimal,
	categoryText string,
	messageID int,
	rawText string,
) {
	txs := []parser.Transaction{{Amount: amount, CategoryText: categoryText}}
	b.storeAndConfirm(ctx, tg, chatID, userID, messageID, rawText, txs)
}

// recordTransactions parses a free-text message and stores its entries.
func (b *Bot) recordTransactions(ctx context.Context, tg TelegramAPI, msg *tgmodels.Message) {
	txs := b.parser.Parse(msg.Text)
	if len(txs) == 0 {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: msg.Chat.ID,
			Text:   "Не нашёл ни одной суммы. Пример: 500 такси",
		})
		return
	}
	b.storeAndConfirm(ctx, tg, msg.Chat.ID, msg.From.ID, msg.ID, msg.Text, txs)
}

// storeAndConfirm records parsed transactions, confirms them and offers a
// category follow-up when resolution fell back to the catch-all.
func (b *Bot) storeAndConfirm(
	ctx context.Context,
	tg TelegramAPI,
	chatID, userID int64,
	messageID int,
	rawText string,
	txs []parser.Transaction,
) {
	entries, err := b.tracker.Record(ctx, userID, &chatID, &messageID, rawText, txs)
	if err != nil {
		logger.Log.Error().
			Str("user", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to record transactions")
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Не удалось сохранить запись. Попробуйте ещё раз.",
		})
		return
	}

	var sb strings.Builder
	hasExpense := false
	for _, entry := range entries {
		switch {
		case entry.Income != nil:
			fmt.Fprintf(&sb, "💰 Доход %s (%s)\n", fmtMoney(entry.Income.Amount), entry.Income.Description)
		case entry.Expense != nil:
			hasExpense = true
			fmt.Fprintf(&sb, "✅ %s — %s\n", fmtMoney(entry.Expense.Amount), entry.Category.Name)
		}
	}

	if hasExpense {
		if rec, err := b.planner.Recommendation(ctx, userID, time.Now()); err == nil && rec != nil {
			sb.WriteString("\n" + formatRecommendation(rec))
		}
	}

	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   strings.TrimRight(sb.String(), "\n"),
	})

	// Offer to fix the category when resolution fell back. Entries line
	// up with txs: Record appends them in input order.
	for i, entry := range entries {
		if entry.Expense == nil || entry.Match != service.MatchFallback {
			continue
		}
		b.offerCategoryFollowUp(ctx, tg, chatID, entry.Expense.ID, txs[i].CategoryText)
	}
}

// offerCategoryFollowUp asks whether a fallback-categorized expense
// should get a new category named after the original text.
func (b *Bot) offerCategoryFollowUp(ctx context.Context, tg TelegramAPI, chatID int64, expenseID int, originalText string) {
	normalized := b.resolver.Normalize(originalText)

	b.followUpMu.Lock()
	b.followUps[expenseID] = normalized
	b.followUpMu.Unlock()

	kb := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: fmt.Sprintf("➕ Создать «%s»", normalized), CallbackData: fmt.Sprintf("fb_new_%d", expenseID)},
			},
			{
				{Text: "Оставить «Прочее»", CallbackData: fmt.Sprintf("fb_keep_%d", expenseID)},
			},
		},
	}
	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        fmt.Sprintf("Не нашёл категорию для «%s», записал в «Прочее». Создать новую категорию?", normalized),
		ReplyMarkup: kb,
	})
}

// formatRecommendation renders a pacing recommendation for the chat.
func formatRecommendation(rec *service.Recommendation) string {
	switch rec.Kind {
	case service.PaceOverspend:
		return fmt.Sprintf(
			"⚠️ Вы тратите быстрее плана: %s из %s за %d дн. (ожидалось %s).\nОсталось %s на %d дн. — примерно %s в день.",
			fmtMoney(rec.Spent), fmtMoney(rec.Limit), rec.DaysPassed, fmtMoney(rec.ExpectedPace),
			fmtMoney(rec.Remaining), rec.DaysRemaining, fmtMoney(rec.DailyAllowance),
		)
	case service.PaceGood:
		return fmt.Sprintf(
			"👍 Отличный темп! Потрачено %s из %s.\nМожно тратить до %s в день до конца месяца.",
			fmtMoney(rec.Spent), fmtMoney(rec.Limit), fmtMoney(rec.DailyAllowance),
		)
	}
	return ""
}
