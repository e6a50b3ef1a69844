package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
	appmodels "gitlab.com/mkovalev/budget-bot/internal/models"
	"gitlab.com/mkovalev/budget-bot/internal/parser"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

const dateLayout = "02.01.2006"

// extractCommandArgs strips the /command prefix (and optional @botname
// suffix) from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// reply sends a plain-text reply to the message's chat.
func reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore is the testable implementation of handleStart.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		firstName = ", " + update.Message.From.FirstName
	}

	text := fmt.Sprintf(`👋 Привет%s!

Я помогу вести семейный бюджет. Просто пишите траты текстом:

  500 такси
  1 234,56 продукты
  +50000 зарплата

Можно несколько строк в одном сообщении. Отправьте /help для списка команд.`, firstName)

	reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 Команды

Записи:
  500 такси — записать расход
  +50000 зарплата — записать доход
  500 — быстрый ввод с кнопками

Отчёты:
  /report [неделя|все] — отчёт по чату
  /cashflow — доходы и расходы
  /categories — список категорий

Бюджет:
  /setbudget <сумма> [категория] — задать месячный лимит
  /budget — статус бюджета
  /carryover [категория] — перенести остаток прошлого месяца
  /vacation — режим отпуска

Планы и цели:
  /plan <сумма> <ДД.ММ.ГГГГ> <описание> — запланировать трату
  /planned — список запланированных
  /done <id> — отметить выполненной
  /goal <название> <сумма> [ДД.ММ.ГГГГ] — цель накопления
  /goals — список целей
  /save <id> <сумма> — пополнить цель
  /distribute <сумма> — распределить по целям
  /schedule — напоминания о доходах`

	reply(ctx, tg, update.Message.Chat.ID, text)
}

// handleCategories handles the /categories command.
func (b *Bot) handleCategories(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCategoriesCore(ctx, tgBot, update)
}

// handleCategoriesCore is the testable implementation of handleCategories.
func (b *Bot) handleCategoriesCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	categories, err := b.categoryRepo.GetAll(ctx)
	if err != nil {
		reply(ctx, tg, update.Message.Chat.ID, "❌ Не удалось загрузить категории.")
		return
	}
	if len(categories) == 0 {
		reply(ctx, tg, update.Message.Chat.ID, "Категорий пока нет. Они появятся после первых записей.")
		return
	}

	var sb strings.Builder
	sb.WriteString("📂 Категории:\n")
	for _, c := range categories {
		fmt.Fprintf(&sb, "• %s\n", c.Name)
	}
	reply(ctx, tg, update.Message.Chat.ID, strings.TrimRight(sb.String(), "\n"))
}

// reportPeriod builds the report window for the /report argument.
func reportPeriod(arg string, now time.Time) service.Period {
	switch strings.ToLower(arg) {
	case "все", "all":
		return service.Period{Label: "всё время"}
	case "неделя", "week":
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		start := end.AddDate(0, 0, -7)
		return service.Period{Start: &start, End: &end, Label: "последние 7 дней"}
	default:
		start := service.MonthStart(now)
		end := service.NextMonth(start)
		return service.Period{Start: &start, End: &end, Label: start.Format("01.2006")}
	}
}

// handleReport handles the /report command.
func (b *Bot) handleReport(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleReportCore(ctx, tgBot, update)
}

// handleReportCore is the testable implementation of handleReport.
func (b *Bot) handleReportCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	period := reportPeriod(extractCommandArgs(update.Message.Text, "/report"), time.Now())

	total, err := b.reporter.TotalByChat(ctx, chatID, period)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось построить отчёт.")
		return
	}
	summary, err := b.reporter.CategorySummary(ctx, chatID, period)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось построить отчёт.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Отчёт за %s\n\nВсего: %s\n", period.Label, fmtMoney(total))
	if len(summary) > 0 {
		sb.WriteString("\nПо категориям:\n")
		for _, row := range summary {
			fmt.Fprintf(&sb, "• %s: %s\n", row.CategoryName, fmtMoney(row.Total))
		}
	}

	if period.Start != nil && period.End != nil {
		if dyn, err := b.reporter.GetDynamics(ctx, chatID, period); err == nil {
			switch {
			case dyn.Difference.IsPositive():
				fmt.Fprintf(&sb, "\n📈 На %s больше, чем в прошлый период.", fmtMoney(dyn.Difference))
			case dyn.Difference.IsNegative():
				fmt.Fprintf(&sb, "\n📉 На %s меньше, чем в прошлый период.", fmtMoney(dyn.Difference.Abs()))
			}
		}
	}

	reply(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"))

	if len(summary) > 1 {
		chart, err := GenerateCategoryChart(summary, period.Label)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to generate report chart")
			return
		}
		_, _ = tg.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &tgmodels.InputFileUpload{Filename: "report.png", Data: bytes.NewReader(chart)},
			Caption: fmt.Sprintf("Расходы по категориям за %s", period.Label),
		})
	}
}

// handleCashflow handles the /cashflow command.
func (b *Bot) handleCashflow(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCashflowCore(ctx, tgBot, update)
}

// handleCashflowCore is the testable implementation of handleCashflow.
func (b *Bot) handleCashflowCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	now := time.Now()
	monthStart := service.MonthStart(now)
	summary, err := b.cashflow.Summary(ctx, userID, monthStart, service.NextMonth(monthStart).AddDate(0, 0, -1))
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось посчитать денежный поток.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💵 Денежный поток за %s\n\n", monthStart.Format("01.2006"))
	fmt.Fprintf(&sb, "Доходы: %s\nРасходы: %s\nИтог: %s\n", fmtMoney(summary.TotalIncome), fmtMoney(summary.TotalExpense), fmtMoney(summary.Net()))
	if summary.TotalIncome.IsPositive() {
		fmt.Fprintf(&sb, "Норма сбережений: %s%%\n", summary.SavingsRatePercent())
	}

	rows, err := b.cashflow.MonthlyBreakdown(ctx, userID)
	if err == nil && len(rows) > 1 {
		sb.WriteString("\nПо месяцам:\n")
		if len(rows) > 6 {
			rows = rows[len(rows)-6:]
		}
		for _, row := range rows {
			fmt.Fprintf(&sb, "%s: +%s / -%s = %s\n",
				row.Month.Format("01.2006"), row.Income.String(), row.Expense.String(), row.Net().String())
		}
	}

	reply(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"))
}

// handleSetBudget handles the /setbudget command.
func (b *Bot) handleSetBudget(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleSetBudgetCore(ctx, tgBot, update)
}

// handleSetBudgetCore is the testable implementation of handleSetBudget.
func (b *Bot) handleSetBudgetCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	args := extractCommandArgs(update.Message.Text, "/setbudget")
	fields := strings.Fields(args)
	if len(fields) == 0 {
		reply(ctx, tg, chatID, "Использование: /setbudget <сумма> [категория]\nПример: /setbudget 30000 или /setbudget 5000 Продукты")
		return
	}

	limit, err := parser.ParsePositiveAmount(fields[0])
	if err != nil {
		reply(ctx, tg, chatID, "Не удалось распознать сумму. Пример: /setbudget 30000")
		return
	}

	var categoryID *int
	scope := "на все расходы"
	if len(fields) > 1 {
		category, err := b.resolver.GetOrCreateExact(ctx, strings.Join(fields[1:], " "))
		if err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось найти категорию.")
			return
		}
		categoryID = &category.ID
		scope = "на категорию «" + category.Name + "»"
	}

	budget := &appmodels.Budget{
		UserID:     userID,
		CategoryID: categoryID,
		Limit:      limit,
		Period:     appmodels.BudgetPeriodMonthly,
	}
	if err := b.budgetRepo.UpsertTemplate(ctx, budget); err != nil {
		logger.Log.Error().
			Str("user", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to upsert budget template")
		reply(ctx, tg, chatID, "❌ Не удалось сохранить бюджет.")
		return
	}

	reply(ctx, tg, chatID, fmt.Sprintf("✅ Месячный лимит %s %s. Статус: /budget", fmtMoney(limit), scope))
}

// handleBudget handles the /budget command.
func (b *Bot) handleBudget(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleBudgetCore(ctx, tgBot, update)
}

// handleBudgetCore is the testable implementation of handleBudget.
func (b *Bot) handleBudgetCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	now := time.Now()

	status, err := b.planner.Status(ctx, userID, now, nil)
	if err != nil {
		if errors.Is(err, service.ErrNotConfigured) {
			reply(ctx, tg, chatID, "Бюджет ещё не задан. Пример: /setbudget 30000")
			return
		}
		reply(ctx, tg, chatID, "❌ Не удалось получить статус бюджета.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 Бюджет на %s\n\n", service.MonthStart(now).Format("01.2006"))
	fmt.Fprintf(&sb, "Лимит: %s\nПотрачено: %s (%s%%)\n", fmtMoney(status.Limit), fmtMoney(status.Spent), status.UsagePercent())
	if status.Overspent() {
		fmt.Fprintf(&sb, "❗ Превышение: %s\n", fmtMoney(status.Remaining().Abs()))
	} else {
		fmt.Fprintf(&sb, "Остаток: %s\n", fmtMoney(status.Remaining()))
	}
	if status.PlannedUpcoming.IsPositive() {
		fmt.Fprintf(&sb, "Запланировано до конца месяца: %s\nОстаток с учётом планов: %s\n",
			fmtMoney(status.PlannedUpcoming), fmtMoney(status.RemainingAfterPlanned()))
	}

	if rec, err := b.planner.Recommendation(ctx, userID, now); err == nil && rec != nil {
		sb.WriteString("\n" + formatRecommendation(rec))
	}

	reply(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"))
}

// handleCarryOver handles the /carryover command: it proposes moving the
// previous month's leftover into the current month, pending confirmation.
func (b *Bot) handleCarryOver(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCarryOverCore(ctx, tgBot, update)
}

// handleCarryOverCore is the testable implementation of handleCarryOver.
func (b *Bot) handleCarryOverCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	var categoryID *int
	catKey := "a"
	scope := ""
	if args := extractCommandArgs(update.Message.Text, "/carryover"); args != "" {
		category, err := b.categoryRepo.GetByName(ctx, b.resolver.Normalize(args))
		if err != nil || category == nil {
			reply(ctx, tg, chatID, "Категория не найдена. Список: /categories")
			return
		}
		categoryID = &category.ID
		catKey = strconv.Itoa(category.ID)
		scope = " по категории «" + category.Name + "»"
	}

	fromMonth := service.MonthStart(time.Now()).AddDate(0, -1, 0)
	proposal, err := b.planner.ComputeCarryOver(ctx, userID, fromMonth, categoryID)
	if err != nil {
		if errors.Is(err, service.ErrNothingToCarry) {
			reply(ctx, tg, chatID, "За прошлый месяц остатка нет, переносить нечего.")
			return
		}
		reply(ctx, tg, chatID, "❌ Не удалось рассчитать перенос.")
		return
	}

	kb := &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "✅ Перенести", CallbackData: fmt.Sprintf("co_%s_%s", fromMonth.Format(callbackMonthLayout), catKey)},
				{Text: "❌ Отмена", CallbackData: "co_cancel"},
			},
		},
	}
	_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text: fmt.Sprintf("За %s%s остался %s. Перенести на %s?",
			fromMonth.Format("01.2006"), scope, fmtMoney(proposal.Amount), proposal.ToMonth.Format("01.2006")),
		ReplyMarkup: kb,
	})
}

// handleVacation handles the /vacation command and its subcommands.
func (b *Bot) handleVacation(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleVacationCore(ctx, tgBot, update)
}

// handleVacationCore is the testable implementation of handleVacation.
func (b *Bot) handleVacationCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	args := extractCommandArgs(update.Message.Text, "/vacation")
	fields := strings.Fields(args)

	switch {
	case len(fields) == 0:
		periods, err := b.vacationRepo.GetByUser(ctx, userID)
		if err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось загрузить периоды отпуска.")
			return
		}
		if len(periods) == 0 {
			reply(ctx, tg, chatID, "Периодов отпуска нет.\nДобавить: /vacation 01.07.2026 15.07.2026 1.5 [описание]")
			return
		}
		var sb strings.Builder
		sb.WriteString("🏖 Периоды отпуска:\n")
		for _, p := range periods {
			fmt.Fprintf(&sb, "#%d %s – %s, множитель %s", p.ID, p.StartDate.Format(dateLayout), p.EndDate.Format(dateLayout), p.BudgetMultiplier)
			if p.Description != "" {
				fmt.Fprintf(&sb, " (%s)", p.Description)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\nУдалить: /vacation del <id>")
		reply(ctx, tg, chatID, sb.String())

	case fields[0] == "del" && len(fields) == 2:
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			reply(ctx, tg, chatID, "Использование: /vacation del <id>")
			return
		}
		if err := b.vacationRepo.Delete(ctx, userID, id); err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось удалить период.")
			return
		}
		reply(ctx, tg, chatID, "✅ Период отпуска удалён.")

	case len(fields) >= 3:
		start, err1 := time.Parse(dateLayout, fields[0])
		end, err2 := time.Parse(dateLayout, fields[1])
		multiplier, err3 := decimal.NewFromString(strings.ReplaceAll(fields[2], ",", "."))
		if err1 != nil || err2 != nil || err3 != nil || end.Before(start) || multiplier.LessThanOrEqual(decimal.Zero) {
			reply(ctx, tg, chatID, "Использование: /vacation <ДД.ММ.ГГГГ> <ДД.ММ.ГГГГ> <множитель> [описание]")
			return
		}
		v := &appmodels.VacationPeriod{
			UserID:           userID,
			StartDate:        start,
			EndDate:          end,
			BudgetMultiplier: multiplier,
			Description:      strings.Join(fields[3:], " "),
		}
		if err := b.vacationRepo.Create(ctx, v); err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось сохранить период отпуска.")
			return
		}
		reply(ctx, tg, chatID, fmt.Sprintf(
			"✅ Отпуск %s – %s с множителем бюджета %s.\nМножитель применится к планам месяцев, попадающих в период.",
			start.Format(dateLayout), end.Format(dateLayout), multiplier))

	default:
		reply(ctx, tg, chatID, "Использование: /vacation [<ДД.ММ.ГГГГ> <ДД.ММ.ГГГГ> <множитель> [описание] | del <id>]")
	}
}

// handlePlannedList handles the /planned command.
func (b *Bot) handlePlannedList(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handlePlannedListCore(ctx, tgBot, update)
}

// handlePlannedListCore is the testable implementation of handlePlannedList.
func (b *Bot) handlePlannedListCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	now := time.Now()

	overdue, err := b.planned.Overdue(ctx, userID, now)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось загрузить запланированные траты.")
		return
	}
	upcoming, err := b.planned.Upcoming(ctx, userID, now, 10)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось загрузить запланированные траты.")
		return
	}

	if len(overdue) == 0 && len(upcoming) == 0 {
		reply(ctx, tg, chatID, "Запланированных трат нет.\nДобавить: /plan 15000 25.09.2026 страховка")
		return
	}

	var sb strings.Builder
	if len(overdue) > 0 {
		sb.WriteString("⏰ Просроченные:\n")
		for _, p := range overdue {
			fmt.Fprintf(&sb, "#%d %s — %s (%s)\n", p.ID, fmtMoney(p.Amount), p.Description, p.PlannedDate.Format(dateLayout))
		}
		sb.WriteString("\n")
	}
	if len(upcoming) > 0 {
		sb.WriteString("📅 Предстоящие:\n")
		for _, p := range upcoming {
			fmt.Fprintf(&sb, "#%d %s — %s (%s)\n", p.ID, fmtMoney(p.Amount), p.Description, p.PlannedDate.Format(dateLayout))
		}
	}
	sb.WriteString("\nОтметить выполненной: /done <id>")
	reply(ctx, tg, chatID, sb.String())
}

// handlePlanCreate handles the /plan command.
func (b *Bot) handlePlanCreate(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	// /planned shares the /plan prefix; delegate explicitly since handler
	// lookup order is not guaranteed.
	if update.Message != nil && strings.HasPrefix(update.Message.Text, "/planned") {
		b.handlePlannedListCore(ctx, tgBot, update)
		return
	}
	b.handlePlanCreateCore(ctx, tgBot, update)
}

// handlePlanCreateCore is the testable implementation of handlePlanCreate.
func (b *Bot) handlePlanCreateCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/plan"))
	if len(fields) < 3 {
		reply(ctx, tg, chatID, "Использование: /plan <сумма> <ДД.ММ.ГГГГ> <описание>\nПример: /plan 15000 25.09.2026 страховка")
		return
	}

	amount, err := parser.ParsePositiveAmount(fields[0])
	if err != nil {
		reply(ctx, tg, chatID, "Не удалось распознать сумму. Пример: /plan 15000 25.09.2026 страховка")
		return
	}
	plannedDate, err := time.Parse(dateLayout, fields[1])
	if err != nil {
		reply(ctx, tg, chatID, "Не удалось распознать дату, нужен формат ДД.ММ.ГГГГ.")
		return
	}
	description := strings.Join(fields[2:], " ")

	pe, err := b.planned.Create(ctx, userID, amount, description, plannedDate, nil)
	if err != nil {
		logger.Log.Error().
			Str("user", logger.HashUserID(userID)).
			Err(err).
			Msg("Failed to create planned expense")
		reply(ctx, tg, chatID, "❌ Не удалось сохранить план.")
		return
	}

	reply(ctx, tg, chatID, fmt.Sprintf("✅ Запланировал %s на %s: %s (#%d).\nКогда потратите, отправьте /done %d",
		fmtMoney(pe.Amount), pe.PlannedDate.Format(dateLayout), pe.Description, pe.ID, pe.ID))
}

// handlePlannedDone handles the /done command.
func (b *Bot) handlePlannedDone(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handlePlannedDoneCore(ctx, tgBot, update)
}

// handlePlannedDoneCore is the testable implementation of handlePlannedDone.
func (b *Bot) handlePlannedDoneCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	id, err := strconv.Atoi(extractCommandArgs(update.Message.Text, "/done"))
	if err != nil {
		reply(ctx, tg, chatID, "Использование: /done <id>. Список: /planned")
		return
	}

	expense, err := b.planned.RecordAsExpense(ctx, userID, id, &chatID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyCompleted) {
			reply(ctx, tg, chatID, "Эта трата уже отмечена выполненной.")
			return
		}
		reply(ctx, tg, chatID, "❌ Не удалось отметить трату. Проверьте id: /planned")
		return
	}

	reply(ctx, tg, chatID, fmt.Sprintf("✅ Записал расход %s по плану #%d.", fmtMoney(expense.Amount), id))
}

// handleGoals handles the /goals command.
func (b *Bot) handleGoals(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleGoalsCore(ctx, tgBot, update)
}

// handleGoalsCore is the testable implementation of handleGoals.
func (b *Bot) handleGoalsCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	goals, err := b.goals.List(ctx, userID)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось загрузить цели.")
		return
	}
	if len(goals) == 0 {
		reply(ctx, tg, chatID, "Целей накопления нет.\nДобавить: /goal Отпуск 100000 31.12.2026")
		return
	}

	now := time.Now()
	var sb strings.Builder
	sb.WriteString("🎯 Цели накопления:\n")
	for i := range goals {
		g := &goals[i]
		if g.IsAchieved {
			fmt.Fprintf(&sb, "✅ #%d %s — достигнута (%s)\n", g.ID, g.Name, fmtMoney(g.TargetAmount))
			continue
		}
		fmt.Fprintf(&sb, "#%d %s: %s из %s (%s%%)", g.ID, g.Name, fmtMoney(g.CurrentAmount), fmtMoney(g.TargetAmount), g.ProgressPercent())
		if monthly := b.goals.MonthlySavingNeeded(g, now); monthly != nil {
			fmt.Fprintf(&sb, ", нужно %s в месяц до %s", fmtMoney(*monthly), g.Deadline.Format(dateLayout))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nПополнить: /save <id> <сумма>")
	reply(ctx, tg, chatID, sb.String())
}

// handleGoalCreate handles the /goal command.
func (b *Bot) handleGoalCreate(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	// /goals shares the /goal prefix; delegate explicitly since handler
	// lookup order is not guaranteed.
	if update.Message != nil && strings.HasPrefix(update.Message.Text, "/goals") {
		b.handleGoalsCore(ctx, tgBot, update)
		return
	}
	b.handleGoalCreateCore(ctx, tgBot, update)
}

// handleGoalCreateCore is the testable implementation of handleGoalCreate.
// The name may span several words, so the amount and the optional
// deadline are parsed from the end of the argument list.
func (b *Bot) handleGoalCreateCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/goal"))
	usage := "Использование: /goal <название> <сумма> [ДД.ММ.ГГГГ]\nПример: /goal Отпуск 100000 31.12.2026"
	if len(fields) < 2 {
		reply(ctx, tg, chatID, usage)
		return
	}

	var deadline *time.Time
	if d, err := time.Parse(dateLayout, fields[len(fields)-1]); err == nil {
		deadline = &d
		fields = fields[:len(fields)-1]
	}
	if len(fields) < 2 {
		reply(ctx, tg, chatID, usage)
		return
	}

	target, err := parser.ParsePositiveAmount(fields[len(fields)-1])
	if err != nil {
		reply(ctx, tg, chatID, usage)
		return
	}
	name := strings.Join(fields[:len(fields)-1], " ")

	goal, err := b.goals.Create(ctx, userID, name, target, deadline)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось создать цель.")
		return
	}

	text := fmt.Sprintf("🎯 Цель «%s» на %s создана (#%d).", goal.Name, fmtMoney(goal.TargetAmount), goal.ID)
	if monthly := b.goals.MonthlySavingNeeded(goal, time.Now()); monthly != nil {
		text += fmt.Sprintf("\nЧтобы успеть к %s, откладывайте %s в месяц.", goal.Deadline.Format(dateLayout), fmtMoney(*monthly))
	}
	reply(ctx, tg, chatID, text)
}

// handleGoalSave handles the /save command.
func (b *Bot) handleGoalSave(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleGoalSaveCore(ctx, tgBot, update)
}

// handleGoalSaveCore is the testable implementation of handleGoalSave.
func (b *Bot) handleGoalSaveCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/save"))
	if len(fields) != 2 {
		reply(ctx, tg, chatID, "Использование: /save <id> <сумма>. Список целей: /goals")
		return
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		reply(ctx, tg, chatID, "Использование: /save <id> <сумма>. Список целей: /goals")
		return
	}
	amount, err := parser.ParsePositiveAmount(fields[1])
	if err != nil {
		reply(ctx, tg, chatID, "Не удалось распознать сумму. Пример: /save 1 5000")
		return
	}

	goal, err := b.goals.Contribute(ctx, userID, id, amount)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось пополнить цель. Проверьте id: /goals")
		return
	}

	if goal.IsAchieved {
		reply(ctx, tg, chatID, fmt.Sprintf("🎉 Цель «%s» достигнута! Накоплено %s.", goal.Name, fmtMoney(goal.CurrentAmount)))
		return
	}
	reply(ctx, tg, chatID, fmt.Sprintf("✅ «%s»: %s из %s (%s%%).",
		goal.Name, fmtMoney(goal.CurrentAmount), fmtMoney(goal.TargetAmount), goal.ProgressPercent()))
}

// handleGoalDistribute handles the /distribute command.
func (b *Bot) handleGoalDistribute(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleGoalDistributeCore(ctx, tgBot, update)
}

// handleGoalDistributeCore is the testable implementation.
func (b *Bot) handleGoalDistributeCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	amount, err := parser.ParsePositiveAmount(extractCommandArgs(update.Message.Text, "/distribute"))
	if err != nil {
		reply(ctx, tg, chatID, "Использование: /distribute <сумма>\nСумма поровну распределится между активными целями.")
		return
	}

	goals, err := b.goals.Distribute(ctx, userID, amount)
	if err != nil {
		reply(ctx, tg, chatID, "❌ Не удалось распределить сумму.")
		return
	}
	if len(goals) == 0 {
		reply(ctx, tg, chatID, "Активных целей нет, распределять некуда. Создать: /goal")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Распределил %s:\n", fmtMoney(amount))
	for i := range goals {
		g := &goals[i]
		fmt.Fprintf(&sb, "• %s: %s из %s", g.Name, fmtMoney(g.CurrentAmount), fmtMoney(g.TargetAmount))
		if g.IsAchieved {
			sb.WriteString(" 🎉")
		}
		sb.WriteString("\n")
	}
	reply(ctx, tg, chatID, strings.TrimRight(sb.String(), "\n"))
}

// handleSchedule handles the /schedule command and its subcommands.
func (b *Bot) handleSchedule(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleScheduleCore(ctx, tgBot, update)
}

// handleScheduleCore is the testable implementation of handleSchedule.
func (b *Bot) handleScheduleCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	fields := strings.Fields(extractCommandArgs(update.Message.Text, "/schedule"))

	switch {
	case len(fields) == 0:
		schedules, err := b.scheduleRepo.GetActiveByUser(ctx, userID)
		if err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось загрузить расписание доходов.")
			return
		}
		if len(schedules) == 0 {
			reply(ctx, tg, chatID, "Напоминаний о доходах нет.\nДобавить: /schedule 10 Зарплата 50000")
			return
		}
		var sb strings.Builder
		sb.WriteString("📆 Напоминания о доходах:\n")
		for _, s := range schedules {
			fmt.Fprintf(&sb, "#%d %s — %d числа", s.ID, s.Name, s.DayOfMonth)
			if s.ExpectedAmount != nil {
				fmt.Fprintf(&sb, ", ожидается %s", fmtMoney(*s.ExpectedAmount))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\nОтключить: /schedule del <id>")
		reply(ctx, tg, chatID, sb.String())

	case fields[0] == "del" && len(fields) == 2:
		id, err := strconv.Atoi(fields[1])
		if err != nil {
			reply(ctx, tg, chatID, "Использование: /schedule del <id>")
			return
		}
		if err := b.scheduleRepo.Deactivate(ctx, userID, id); err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось отключить напоминание.")
			return
		}
		reply(ctx, tg, chatID, "✅ Напоминание отключено.")

	case len(fields) >= 2:
		day, err := strconv.Atoi(fields[0])
		if err != nil || day < 1 || day > 31 {
			reply(ctx, tg, chatID, "День должен быть числом от 1 до 31.\nПример: /schedule 10 Зарплата 50000")
			return
		}

		nameFields := fields[1:]
		var expected *decimal.Decimal
		if len(nameFields) > 1 {
			if amount, err := parser.ParsePositiveAmount(nameFields[len(nameFields)-1]); err == nil {
				expected = &amount
				nameFields = nameFields[:len(nameFields)-1]
			}
		}

		schedule := &appmodels.IncomeSchedule{
			UserID:         userID,
			Name:           strings.Join(nameFields, " "),
			DayOfMonth:     day,
			ExpectedAmount: expected,
			IsActive:       true,
		}
		if err := b.scheduleRepo.Create(ctx, schedule); err != nil {
			reply(ctx, tg, chatID, "❌ Не удалось сохранить напоминание.")
			return
		}
		reply(ctx, tg, chatID, fmt.Sprintf("✅ Буду напоминать о «%s» %d числа каждого месяца.", schedule.Name, day))

	default:
		reply(ctx, tg, chatID, "Использование: /schedule [<день> <название> [сумма] | del <id>]")
	}
}
