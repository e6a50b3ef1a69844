package service

import (
	"context"
	"time"

	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// ScheduleStore provides active income schedules.
type ScheduleStore interface {
	GetActiveByUser(ctx context.Context, userID int64) ([]models.IncomeSchedule, error)
}

// Reminders computes which payday and planned-expense reminders are due.
// The transport layer decides when to call it and how to deliver.
type Reminders struct {
	schedules ScheduleStore
	planned   PlannedStore
}

// NewReminders creates a Reminders service.
func NewReminders(schedules ScheduleStore, planned PlannedStore) *Reminders {
	return &Reminders{schedules: schedules, planned: planned}
}

// DueIncomeSchedules returns the user's schedules that trigger today.
// A schedule's day of month is clamped to the month's last day, so a
// day-31 payday triggers on the 30th of a 30-day month.
func (r *Reminders) DueIncomeSchedules(ctx context.Context, userID int64, today time.Time) ([]models.IncomeSchedule, error) {
	schedules, err := r.schedules.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	lastDay := daysInMonth(today)
	var due []models.IncomeSchedule
	for _, s := range schedules {
		triggerDay := s.DayOfMonth
		if triggerDay > lastDay {
			triggerDay = lastDay
		}
		if triggerDay == today.Day() {
			due = append(due, s)
		}
	}
	return due, nil
}

// TodaysPlannedExpenses returns incomplete obligations dated today.
func (r *Reminders) TodaysPlannedExpenses(ctx context.Context, userID int64, today time.Time) ([]models.PlannedExpense, error) {
	day := dateOf(today)
	return r.planned.GetPendingInRange(ctx, userID, day, day)
}

// UpcomingPlannedExpenses returns incomplete obligations due within the
// next daysAhead days, today included.
func (r *Reminders) UpcomingPlannedExpenses(ctx context.Context, userID int64, today time.Time, daysAhead int) ([]models.PlannedExpense, error) {
	day := dateOf(today)
	return r.planned.GetPendingInRange(ctx, userID, day, day.AddDate(0, 0, daysAhead))
}
