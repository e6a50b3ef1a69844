// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"gitlab.com/mkovalev/budget-bot/internal/config"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/models"
	"gitlab.com/mkovalev/budget-bot/internal/parser"
	"gitlab.com/mkovalev/budget-bot/internal/repository"
	"gitlab.com/mkovalev/budget-bot/internal/service"
)

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot *bot.Bot
	// api is the send surface used outside update handlers, swappable in
	// tests. Points at bot in production.
	api TelegramAPI
	cfg *config.Config
	lex parser.Lexicon

	userRepo     *repository.UserRepository
	categoryRepo *repository.CategoryRepository
	expenseRepo  *repository.ExpenseRepository
	incomeRepo   *repository.IncomeRepository
	budgetRepo   *repository.BudgetRepository
	vacationRepo *repository.VacationRepository
	scheduleRepo *repository.IncomeScheduleRepository

	parser   *parser.Parser
	resolver *service.CategoryResolver
	tracker  *service.Tracker
	planner  *service.BudgetPlanner
	reporter *service.Reporter
	cashflow *service.CashflowService
	planned  *service.PlannedExpenses
	goals    *service.SavingGoals
	remind   *service.Reminders

	// Per-chat state of the guided quick-entry flow and of fallback
	// category follow-ups. Chat handling is serialized by Telegram's
	// update ordering, but callbacks may race with new messages.
	pendingMu sync.RWMutex
	pending   map[int64]*pendingEntry

	followUpMu sync.RWMutex
	followUps  map[int]string // expense ID -> original category text
}

// New creates a new Bot instance.
func New(cfg *config.Config, pool *pgxpool.Pool) (*Bot, error) {
	lex := parser.DefaultLexicon()

	userRepo := repository.NewUserRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	expenseRepo := repository.NewExpenseRepository(pool)
	incomeRepo := repository.NewIncomeRepository(pool)
	budgetRepo := repository.NewBudgetRepository(pool)
	vacationRepo := repository.NewVacationRepository(pool)
	plannedRepo := repository.NewPlannedExpenseRepository(pool)
	goalRepo := repository.NewSavingGoalRepository(pool)
	scheduleRepo := repository.NewIncomeScheduleRepository(pool)

	resolver := service.NewCategoryResolver(categoryRepo)
	plannedSvc := service.NewPlannedExpenses(pool, plannedRepo, expenseRepo)

	b := &Bot{
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
		planned:      plannedSvc,
		goals:        service.NewSavingGoals(goalRepo),
		remind:       service.NewReminders(scheduleRepo, plannedRepo),
		pending:      make(map[int64]*pendingEntry),
		followUps:    make(map[int]string),
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.accessMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.api = telegramBot
	b.registerHandlers()

	return b, nil
}

// Start launches the reminder loop and begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	go b.startDailyReminderLoop(ctx)
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/categories", bot.MatchTypePrefix, b.handleCategories)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/report", bot.MatchTypePrefix, b.handleReport)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cashflow", bot.MatchTypePrefix, b.handleCashflow)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/setbudget", bot.MatchTypePrefix, b.handleSetBudget)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/budget", bot.MatchTypeExact, b.handleBudget)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/carryover", bot.MatchTypePrefix, b.handleCarryOver)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/vacation", bot.MatchTypePrefix, b.handleVacation)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/planned", bot.MatchTypePrefix, b.handlePlannedList)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/plan", bot.MatchTypePrefix, b.handlePlanCreate)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/done", bot.MatchTypePrefix, b.handlePlannedDone)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/goals", bot.MatchTypePrefix, b.handleGoals)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/goal", bot.MatchTypePrefix, b.handleGoalCreate)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/save", bot.MatchTypePrefix, b.handleGoalSave)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/distribute", bot.MatchTypePrefix, b.handleGoalDistribute)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/schedule", bot.MatchTypePrefix, b.handleSchedule)

	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "qe_", bot.MatchTypePrefix, b.handleQuickEntryCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "fb_", bot.MatchTypePrefix, b.handleFollowUpCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "co_", bot.MatchTypePrefix, b.handleCarryOverCallback)
}

// accessMiddleware enforces the whitelist and keeps the user row current.
func (b *Bot) accessMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		username := extractUsername(update)
		logUserAction(userID, username, update)

		if !b.cfg.IsUserAllowed(userID, username) {
			logger.Log.Warn().
				Str("user", logger.HashUserID(userID)).
				Msg("Blocked non-whitelisted user")
			if update.Message != nil {
				_, _ = tgBot.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: update.Message.Chat.ID,
					Text:   "⛔ Извините, у вас нет доступа к этому боту.",
				})
			}
			return
		}

		if err := b.ensureUserRegistered(ctx, update); err != nil {
			logger.Log.Error().
				Str("user", logger.HashUserID(userID)).
				Err(err).
				Msg("Failed to register user")
		}

		next(ctx, tgBot, update)
	}
}

// logUserAction logs the user's input with privacy-preserving fields.
func logUserAction(userID int64, username string, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		logger.Log.Info().
			Str("user", logger.HashUserID(userID)).
			Str("chat", logger.HashChatID(msg.Chat.ID)).
			Str("text", logger.SanitizeText(msg.Text)).
			Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// ensureUserRegistered creates or updates the user record.
func (b *Bot) ensureUserRegistered(ctx context.Context, update *tgmodels.Update) error {
	var user *models.User

	if update.Message != nil && update.Message.From != nil {
		from := update.Message.From
		user = &models.User{
			ID:        from.ID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		}
	} else if update.CallbackQuery != nil {
		from := update.CallbackQuery.From
		user = &models.User{
			ID:        from.ID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		}
	}

	if user == nil {
		return nil
	}

	if err := b.userRepo.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
