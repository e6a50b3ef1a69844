package service

import (
	"context"

	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/models"
	"gitlab.com/mkovalev/budget-bot/internal/parser"
)

// ExpenseWriter persists expense rows.
type ExpenseWriter interface {
	Create(ctx context.Context, expense *models.Expense) error
}

// IncomeWriter persists income rows.
type IncomeWriter interface {
	Create(ctx context.Context, income *models.Income) error
}

// RecordedEntry is one stored transaction with its resolution outcome.
// Match lets the transport offer a follow-up when resolution fell back.
type RecordedEntry struct {
	Expense  *models.Expense
	Income   *models.Income
	Category *models.Category
	Match    Match
}

// Tracker records parsed transactions: resolves the category, stores the
// row with its provenance and reports how resolution went.
type Tracker struct {
	resolver *CategoryResolver
	expenses ExpenseWriter
	incomes  IncomeWriter
}

// NewTracker creates a Tracker.
func NewTracker(resolver *CategoryResolver, expenses ExpenseWriter, incomes IncomeWriter) *Tracker {
	return &Tracker{resolver: resolver, expenses: expenses, incomes: incomes}
}

// Record stores every parsed transaction from one message. Expenses get a
// resolved category; incomes keep their description and stay
// uncategorized. rawText and messageID are stored as provenance.
func (t *Tracker) Record(ctx context.Context, userID int64, chatID *int64, messageID *int, rawText string, txs []parser.Transaction) ([]RecordedEntry, error) {
	entries := make([]RecordedEntry, 0, len(txs))
	for _, tx := range txs {
		if tx.IsIncome {
			income := &models.Income{
				UserID:      userID,
				Amount:      tx.Amount,
				Description: tx.CategoryText,
				ChatID:      chatID,
				RawText:     rawText,
				MessageID:   messageID,
			}
			if err := t.incomes.Create(ctx, income); err != nil {
				return entries, err
			}
			entries = append(entries, RecordedEntry{Income: income})
			continue
		}

		cat, match, err := t.resolver.Resolve(ctx, tx.CategoryText)
		if err != nil {
			return entries, err
		}
		expense := &models.Expense{
			UserID:     userID,
			Amount:     tx.Amount,
			CategoryID: &cat.ID,
			ChatID:     chatID,
			RawText:    rawText,
			MessageID:  messageID,
		}
		if err := t.expenses.Create(ctx, expense); err != nil {
			return entries, err
		}
		expense.Category = cat
		entries = append(entries, RecordedEntry{Expense: expense, Category: cat, Match: match})
	}

	logger.Log.Debug().
		Str("user", logger.HashUserID(userID)).
		Int("entries", len(entries)).
		Msg("recorded transactions")
	return entries, nil
}
