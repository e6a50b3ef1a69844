package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/models"
	"gitlab.com/mkovalev/budget-bot/internal/parser"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

// callbackMonthLayout encodes a plan month inside callback data.
const callbackMonthLayout = "2006-01"

// answerCallback acknowledges a callback query, optionally with a toast.
func answerCallback(ctx context.Context, tg TelegramAPI, callbackID, text string) {
	_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

// callbackMessage extracts the accessible message a callback refers to.
func callbackMessage(cq *tgmodels.CallbackQuery) *tgmodels.Message {
	if cq == nil {
		return nil
	}
	return cq.Message.Message
}

// handleQuickEntryCallback handles the qe_* buttons of the guided flow.
func (b *Bot) handleQuickEntryCallback(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleQuickEntryCallbackCore(ctx, tgBot, update)
}

// handleQuickEntryCallbackCore is the testable implementation.
func (b *Bot) handleQuickEntryCallbackCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	cq := update.CallbackQuery
	msg := callbackMessage(cq)
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := cq.From.ID
	data := cq.Data

	switch {
	case data == "qe_cancel":
		b.pendingMu.Lock()
		if p := b.pending[chatID]; p != nil && p.userID != userID {
			b.pendingMu.Unlock()
			answerCallback(ctx, tg, cq.ID, "Эту запись начал другой пользователь")
			return
		}
		delete(b.pending, chatID)
		b.pendingMu.Unlock()
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: msg.ID,
			Text:      "Отменено.",
		})

	case data == "qe_income":
		b.pendingMu.Lock()
		p := b.pending[chatID]
		if p != nil && p.userID != userID {
			b.pendingMu.Unlock()
			answerCallback(ctx, tg, cq.ID, "Эту запись начал другой пользователь")
			return
		}
		delete(b.pending, chatID)
		b.pendingMu.Unlock()
		if p == nil || p.amount.IsZero() {
			answerCallback(ctx, tg, cq.ID, "Запись устарела, отправьте сумму ещё раз")
			return
		}

		txs := []parser.Transaction{{Amount: p.amount, CategoryText: b.lex.NoDescription, IsIncome: true}}
		if _, err := b.tracker.Record(ctx, userID, &chatID, &p.messageID, p.rawText, txs); err != nil {
			logger.Log.Error().
				Str("user", logger.HashUserID(userID)).
				Err(err).
				Msg("Failed to record quick income")
			answerCallback(ctx, tg, cq.ID, "Не удалось сохранить")
			return
		}
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: msg.ID,
			Text:      fmt.Sprintf("💰 Доход %s записан.", fmtMoney(p.amount)),
		})

	case data == "qe_expense":
		b.pendingMu.RLock()
		p := b.pending[chatID]
		b.pendingMu.RUnlock()
		if p != nil && p.userID != userID {
			answerCallback(ctx, tg, cq.ID, "Эту запись начал другой пользователь")
			return
		}
		if p == nil || p.amount.IsZero() {
			answerCallback(ctx, tg, cq.ID, "Запись устарела, отправьте сумму ещё раз")
			return
		}

		categories, err := b.categoryRepo.GetAll(ctx)
		if err != nil || len(categories) == 0 {
			answerCallback(ctx, tg, cq.ID, "Не удалось загрузить категории")
			return
		}
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   msg.ID,
			Text:        fmt.Sprintf("Расход %s. Выберите категорию:", fmtMoney(p.amount)),
			ReplyMarkup: categoryKeyboard(categories),
		})

	case strings.HasPrefix(data, "qe_cat_"):
		categoryID, err := strconv.Atoi(strings.TrimPrefix(data, "qe_cat_"))
		if err != nil {
			answerCallback(ctx, tg, cq.ID, "Некорректная категория")
			return
		}

		b.pendingMu.Lock()
		p := b.pending[chatID]
		if p != nil && p.userID != userID {
			b.pendingMu.Unlock()
			answerCallback(ctx, tg, cq.ID, "Эту запись начал другой пользователь")
			return
		}
		delete(b.pending, chatID)
		b.pendingMu.Unlock()
		if p == nil || p.amount.IsZero() {
			answerCallback(ctx, tg, cq.ID, "Запись устарела, отправьте сумму ещё раз")
			return
		}

		category, err := b.categoryRepo.GetByID(ctx, categoryID)
		if err != nil || category == nil {
			answerCallback(ctx, tg, cq.ID, "Категория не найдена")
			return
		}

		expense := &models.Expense{
			UserID:     userID,
			Amount:     p.amount,
			CategoryID: &category.ID,
			ChatID:     &chatID,
			RawText:    p.rawText,
			MessageID:  &p.messageID,
		}
		if err := b.expenseRepo.Create(ctx, expense); err != nil {
			logger.Log.Error().
				Str("user", logger.HashUserID(userID)).
				Err(err).
				Msg("Failed to record quick expense")
			answerCallback(ctx, tg, cq.ID, "Не удалось сохранить")
			return
		}

		text := fmt.Sprintf("✅ %s — %s", fmtMoney(p.amount), category.Name)
		if rec, err := b.planner.Recommendation(ctx, userID, time.Now()); err == nil && rec != nil {
			text += "\n\n" + formatRecommendation(rec)
		}
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    chatID,
			MessageID: msg.ID,
			Text:      text,
		})
	}

	answerCallback(ctx, tg, cq.ID, "")
}

// categoryKeyboard lays out category buttons two per row plus a cancel.
func categoryKeyboard(categories []models.Category) *tgmodels.InlineKeyboardMarkup {
	var rows [][]tgmodels.InlineKeyboardButton
	var row []tgmodels.InlineKeyboardButton
	for _, c := range categories {
		row = append(row, tgmodels.InlineKeyboardButton{
			Text:         c.Name,
			CallbackData: fmt.Sprintf("qe_cat_%d", c.ID),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "❌ Отмена", CallbackData: "qe_cancel"},
	})
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleFollowUpCallback handles the fb_* buttons offered after a
// fallback categorization.
func (b *Bot) handleFollowUpCallback(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleFollowUpCallbackCore(ctx, tgBot, update)
}

// handleFollowUpCallbackCore is the testable implementation.
func (b *Bot) handleFollowUpCallbackCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	cq := update.CallbackQuery
	msg := callbackMessage(cq)
	if msg == nil {
		return
	}

	parts := strings.Split(cq.Data, "_")
	if len(parts) != 3 {
		answerCallback(ctx, tg, cq.ID, "Некорректные данные")
		return
	}
	action := parts[1]
	expenseID, err := strconv.Atoi(parts[2])
	if err != nil {
		answerCallback(ctx, tg, cq.ID, "Некорректные данные")
		return
	}

	b.followUpMu.Lock()
	originalText, ok := b.followUps[expenseID]
	delete(b.followUps, expenseID)
	b.followUpMu.Unlock()

	switch action {
	case "keep":
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      "Ок, оставил в «Прочее».",
		})

	case "new":
		if !ok || originalText == "" {
			answerCallback(ctx, tg, cq.ID, "Предложение устарело")
			return
		}
		category, err := b.resolver.GetOrCreateExact(ctx, originalText)
		if err != nil {
			answerCallback(ctx, tg, cq.ID, "Не удалось создать категорию")
			return
		}
		if err := b.expenseRepo.UpdateCategory(ctx, expenseID, category.ID); err != nil {
			logger.Log.Error().
				Int("expense_id", expenseID).
				Err(err).
				Msg("Failed to recategorize expense")
			answerCallback(ctx, tg, cq.ID, "Не удалось обновить запись")
			return
		}
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      fmt.Sprintf("✅ Создал категорию «%s» и перенёс расход.", category.Name),
		})
	}

	answerCallback(ctx, tg, cq.ID, "")
}

// handleCarryOverCallback handles the co_* confirmation buttons.
// The proposal is recomputed from the source month at confirmation time,
// so the applied amount reflects late-arriving expenses.
func (b *Bot) handleCarryOverCallback(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCarryOverCallbackCore(ctx, tgBot, update)
}

// handleCarryOverCallbackCore is the testable implementation.
func (b *Bot) handleCarryOverCallbackCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	cq := update.CallbackQuery
	msg := callbackMessage(cq)
	if msg == nil {
		return
	}

	if cq.Data == "co_cancel" {
		_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      "Перенос остатка отменён.",
		})
		answerCallback(ctx, tg, cq.ID, "")
		return
	}

	// co_<YYYY-MM>_<a|categoryID>
	parts := strings.Split(cq.Data, "_")
	if len(parts) != 3 {
		answerCallback(ctx, tg, cq.ID, "Некорректные данные")
		return
	}
	fromMonth, err := time.Parse(callbackMonthLayout, parts[1])
	if err != nil {
		answerCallback(ctx, tg, cq.ID, "Некорректные данные")
		return
	}
	var categoryID *int
	if parts[2] != "a" {
		id, err := strconv.Atoi(parts[2])
		if err != nil {
			answerCallback(ctx, tg, cq.ID, "Некорректные данные")
			return
		}
		categoryID = &id
	}

	userID := cq.From.ID
	proposal, err := b.planner.ComputeCarryOver(ctx, userID, fromMonth, categoryID)
	if err != nil {
		if errors.Is(err, service.ErrNothingToCarry) {
			_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
				ChatID:    msg.Chat.ID,
				MessageID: msg.ID,
				Text:      "Остатка за прошлый месяц больше нет, переносить нечего.",
			})
			answerCallback(ctx, tg, cq.ID, "")
			return
		}
		answerCallback(ctx, tg, cq.ID, "Не удалось рассчитать перенос")
		return
	}

	plan, err := b.planner.ApplyCarryOver(ctx, userID, proposal.ToMonth, proposal.Amount, categoryID)
	if err != nil {
		logger.Log.Error().
			Str("user", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to apply carry-over")
		answerCallback(ctx, tg, cq.ID, "Не удалось применить перенос")
		return
	}

	_, _ = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text: fmt.Sprintf(
			"✅ Перенёс %s на %s. Лимит месяца с учётом переноса: %s.",
			fmtMoney(proposal.Amount),
			proposal.ToMonth.Format("01.2006"),
			fmtMoney(plan.EffectiveLimit()),
		),
	})
	answerCallback(ctx, tg, cq.ID, "")
}
