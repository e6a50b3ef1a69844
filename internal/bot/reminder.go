package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"gitlab.com/mkovalev/budget-bot/internal/logger"
)

const (
	// ReminderCheckInterval is how often the reminder loop checks whether to send reminders.
	ReminderCheckInterval = 30 * time.Minute
	// ReminderTimeout is the maximum time a single reminder check can take.
	ReminderTimeout = 2 * time.Minute
	// reminderLookaheadDays is how far ahead planned expenses are announced.
	reminderLookaheadDays = 3
)

// startDailyReminderLoop runs a periodic loop that reminds users about
// expected incomes and upcoming planned expenses.
func (b *Bot) startDailyReminderLoop(ctx context.Context) {
	if !b.cfg.RemindersEnabled {
		logger.Log.Info().Msg("Reminders are disabled")
		return
	}

	loc, err := time.LoadLocation(b.cfg.ReminderTimezone)
	if err != nil {
		logger.Log.Error().Err(err).Str("timezone", b.cfg.ReminderTimezone).Msg("Failed to load reminder timezone, disabling reminders")
		return
	}

	logger.Log.Info().
		Int("hour", b.cfg.ReminderHour).
		Str("timezone", b.cfg.ReminderTimezone).
		Msg("Reminder loop started")

	reminded := make(map[int64]string)
	ticker := time.NewTicker(ReminderCheckInterval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		logger.Log.Info().Msg("Reminder loop stopped")
		return
	default:
	}

	// Run one check immediately so reminders aren't skipped when the
	// process starts during the configured reminder hour.
	b.checkAndSendReminders(ctx, reminded, time.Now().In(loc))

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Reminder loop stopped")
			return
		case <-ticker.C:
			b.checkAndSendReminders(ctx, reminded, time.Now().In(loc))
		}
	}
}

// checkAndSendReminders sends due reminders to every known user once per
// day. The reminded map tracks which users have already been notified
// today to avoid duplicates.
func (b *Bot) checkAndSendReminders(ctx context.Context, reminded map[int64]string, now time.Time) {
	if now.Hour() != b.cfg.ReminderHour {
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, ReminderTimeout)
	defer cancel()

	todayStr := now.Format("2006-01-02")

	// Prune entries from previous days so the map doesn't grow unbounded.
	for uid, dateStr := range reminded {
		if dateStr != todayStr {
			delete(reminded, uid)
		}
	}

	users, err := b.userRepo.GetAll(checkCtx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to fetch users for reminders")
		return
	}

	for _, user := range users {
		if reminded[user.ID] == todayStr {
			continue
		}
		if !b.cfg.IsUserAllowed(user.ID, user.Username) {
			continue
		}

		text, err := b.buildReminderText(checkCtx, user.ID, now)
		if err != nil {
			logger.Log.Warn().Err(err).Str("user", logger.HashUserID(user.ID)).Msg("Failed to build reminder")
			continue
		}
		if text == "" {
			reminded[user.ID] = todayStr
			continue
		}

		if _, err := b.api.SendMessage(checkCtx, &tgbot.SendMessageParams{
			ChatID: user.ID,
			Text:   text,
		}); err != nil {
			logger.Log.Warn().Err(err).Str("user", logger.HashUserID(user.ID)).Msg("Failed to send reminder")
			continue
		}

		reminded[user.ID] = todayStr
		logger.Log.Debug().Str("user", logger.HashUserID(user.ID)).Msg("Sent reminder")
	}
}

// buildReminderText assembles the user's reminder, empty when there is
// nothing to remind about.
func (b *Bot) buildReminderText(ctx context.Context, userID int64, now time.Time) (string, error) {
	var sb strings.Builder

	schedules, err := b.remind.DueIncomeSchedules(ctx, userID, now)
	if err != nil {
		return "", err
	}
	for _, s := range schedules {
		fmt.Fprintf(&sb, "💰 Сегодня ожидается доход «%s»", s.Name)
		if s.ExpectedAmount != nil {
			fmt.Fprintf(&sb, " (%s)", fmtMoney(*s.ExpectedAmount))
		}
		sb.WriteString(". Не забудьте записать его, когда придёт.\n")
	}

	today, err := b.remind.TodaysPlannedExpenses(ctx, userID, now)
	if err != nil {
		return "", err
	}
	for _, p := range today {
		fmt.Fprintf(&sb, "📅 На сегодня запланировано: %s — %s. Выполнено? /done %d\n", fmtMoney(p.Amount), p.Description, p.ID)
	}

	upcoming, err := b.remind.UpcomingPlannedExpenses(ctx, userID, now, reminderLookaheadDays)
	if err != nil {
		return "", err
	}
	for _, p := range upcoming {
		// The range includes today; those were already listed above.
		if p.PlannedDate.Year() == now.Year() && p.PlannedDate.YearDay() == now.YearDay() {
			continue
		}
		fmt.Fprintf(&sb, "🔜 %s: %s — %s\n", p.PlannedDate.Format(dateLayout), fmtMoney(p.Amount), p.Description)
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
