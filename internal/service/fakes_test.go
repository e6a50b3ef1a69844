package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// In-memory store fakes. They implement the same race-free semantics the
// real repositories get from database constraints (insert-or-ignore on
// names, aliases and plan keys) so the services under test behave as they
// would against Postgres.

type fakeCategoryStore struct {
	nextID     int
	categories []models.Category
	aliases    map[string]int // alias -> category ID
}

func newFakeCategoryStore(names ...string) *fakeCategoryStore {
	s := &fakeCategoryStore{aliases: map[string]int{}}
	for _, name := range names {
		s.nextID++
		s.categories = append(s.categories, models.Category{ID: s.nextID, Name: name})
	}
	return s
}

func (s *fakeCategoryStore) GetByName(_ context.Context, name string) (*models.Category, error) {
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Name, name) {
			c := s.categories[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeCategoryStore) GetOrCreate(_ context.Context, name string) (*models.Category, error) {
	for i := range s.categories {
		if strings.EqualFold(s.categories[i].Name, name) {
			c := s.categories[i]
			return &c, nil
		}
	}
	s.nextID++
	c := models.Category{ID: s.nextID, Name: name}
	s.categories = append(s.categories, c)
	return &c, nil
}

func (s *fakeCategoryStore) FindByNameContaining(_ context.Context, text string) (*models.Category, error) {
	lower := strings.ToLower(text)
	for i := range s.categories {
		if strings.Contains(strings.ToLower(s.categories[i].Name), lower) {
			c := s.categories[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeCategoryStore) GetAliasByName(_ context.Context, alias string) (*models.Category, error) {
	for a, catID := range s.aliases {
		if strings.EqualFold(a, alias) {
			return s.byID(catID), nil
		}
	}
	return nil, nil
}

func (s *fakeCategoryStore) FindAliasContaining(_ context.Context, text string) (*models.Category, error) {
	lower := strings.ToLower(text)
	for a, catID := range s.aliases {
		if strings.Contains(strings.ToLower(a), lower) {
			return s.byID(catID), nil
		}
	}
	return nil, nil
}

func (s *fakeCategoryStore) CreateAliasIfAbsent(_ context.Context, categoryID int, alias string) error {
	for a := range s.aliases {
		if strings.EqualFold(a, alias) {
			return nil
		}
	}
	s.aliases[alias] = categoryID
	return nil
}

func (s *fakeCategoryStore) byID(id int) *models.Category {
	for i := range s.categories {
		if s.categories[i].ID == id {
			c := s.categories[i]
			return &c
		}
	}
	return nil
}

func scopeKey(userID int64, categoryID *int) string {
	if categoryID == nil {
		return fmt.Sprintf("%d:-", userID)
	}
	return fmt.Sprintf("%d:%d", userID, *categoryID)
}

type fakeBudgetStore struct {
	nextID    int
	templates map[string]models.Budget
	plans     map[string]models.MonthlyBudgetPlan // scopeKey + month
}

func newFakeBudgetStore() *fakeBudgetStore {
	return &fakeBudgetStore{
		templates: map[string]models.Budget{},
		plans:     map[string]models.MonthlyBudgetPlan{},
	}
}

func planKey(userID int64, month time.Time, categoryID *int) string {
	return scopeKey(userID, categoryID) + ":" + month.Format("2006-01")
}

func (s *fakeBudgetStore) setTemplate(userID int64, categoryID *int, limit decimal.Decimal) {
	s.nextID++
	s.templates[scopeKey(userID, categoryID)] = models.Budget{
		ID:         s.nextID,
		UserID:     userID,
		CategoryID: categoryID,
		Limit:      limit,
		Period:     models.BudgetPeriodMonthly,
	}
}

func (s *fakeBudgetStore) GetTemplate(_ context.Context, userID int64, categoryID *int) (*models.Budget, error) {
	if t, ok := s.templates[scopeKey(userID, categoryID)]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *fakeBudgetStore) GetPlan(_ context.Context, userID int64, month time.Time, categoryID *int) (*models.MonthlyBudgetPlan, error) {
	if p, ok := s.plans[planKey(userID, month, categoryID)]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *fakeBudgetStore) CreatePlanIfAbsent(_ context.Context, userID int64, month time.Time, categoryID *int, plannedLimit decimal.Decimal) (*models.MonthlyBudgetPlan, error) {
	key := planKey(userID, month, categoryID)
	if p, ok := s.plans[key]; ok {
		return &p, nil
	}
	s.nextID++
	p := models.MonthlyBudgetPlan{
		ID:           s.nextID,
		UserID:       userID,
		Month:        month,
		CategoryID:   categoryID,
		PlannedLimit: plannedLimit,
		CarryOver:    decimal.Zero,
	}
	s.plans[key] = p
	return &p, nil
}

func (s *fakeBudgetStore) CommitCarryOver(_ context.Context, planID int, amount decimal.Decimal) error {
	for key, p := range s.plans {
		if p.ID == planID {
			p.CarryOver = amount
			p.CarryOverApplied = true
			s.plans[key] = p
			return nil
		}
	}
	return fmt.Errorf("plan %d not found", planID)
}

type fakeVacationStore struct {
	periods []models.VacationPeriod
}

func (s *fakeVacationStore) GetOverlappingMonth(_ context.Context, userID int64, monthStart time.Time) ([]models.VacationPeriod, error) {
	monthEnd := monthStart.AddDate(0, 1, -1)
	var result []models.VacationPeriod
	for _, v := range s.periods {
		if v.UserID == userID && !v.StartDate.After(monthEnd) && !v.EndDate.Before(monthStart) {
			result = append(result, v)
		}
	}
	return result, nil
}

type fakeExpense struct {
	userID     int64
	amount     decimal.Decimal
	categoryID *int
	createdAt  time.Time
}

type fakeSpendStore struct {
	expenses []fakeExpense
}

func (s *fakeSpendStore) add(userID int64, amount decimal.Decimal, categoryID *int, createdAt time.Time) {
	s.expenses = append(s.expenses, fakeExpense{userID, amount, categoryID, createdAt})
}

func (s *fakeSpendStore) SumAbsByUser(_ context.Context, userID int64, start, end time.Time, categoryID *int) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range s.expenses {
		if e.userID != userID {
			continue
		}
		if e.createdAt.Before(start) || !e.createdAt.Before(end) {
			continue
		}
		if categoryID != nil && (e.categoryID == nil || *e.categoryID != *categoryID) {
			continue
		}
		total = total.Add(e.amount.Abs())
	}
	return total, nil
}

func (s *fakeSpendStore) MonthlyTotalsByUser(_ context.Context, userID int64) (map[time.Time]decimal.Decimal, error) {
	totals := map[time.Time]decimal.Decimal{}
	for _, e := range s.expenses {
		if e.userID != userID {
			continue
		}
		m := MonthStart(e.createdAt)
		totals[m] = totals[m].Add(e.amount.Abs())
	}
	return totals, nil
}

type fakePlannedStore struct {
	items []models.PlannedExpense
}

func (s *fakePlannedStore) GetPendingInRange(_ context.Context, userID int64, from, to time.Time) ([]models.PlannedExpense, error) {
	var result []models.PlannedExpense
	for _, pe := range s.items {
		if pe.UserID != userID || pe.IsCompleted {
			continue
		}
		if pe.PlannedDate.Before(from) || pe.PlannedDate.After(to) {
			continue
		}
		result = append(result, pe)
	}
	return result, nil
}

type fakeIncomeEntry struct {
	userID    int64
	amount    decimal.Decimal
	createdAt time.Time
}

type fakeIncomeStore struct {
	incomes []fakeIncomeEntry
}

func (s *fakeIncomeStore) add(userID int64, amount decimal.Decimal, createdAt time.Time) {
	s.incomes = append(s.incomes, fakeIncomeEntry{userID, amount, createdAt})
}

func (s *fakeIncomeStore) SumByUser(_ context.Context, userID int64, start, end time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range s.incomes {
		if e.userID != userID {
			continue
		}
		if e.createdAt.Before(start) || !e.createdAt.Before(end) {
			continue
		}
		total = total.Add(e.amount)
	}
	return total, nil
}

func (s *fakeIncomeStore) MonthlyTotalsByUser(_ context.Context, userID int64) (map[time.Time]decimal.Decimal, error) {
	totals := map[time.Time]decimal.Decimal{}
	for _, e := range s.incomes {
		if e.userID != userID {
			continue
		}
		m := MonthStart(e.createdAt)
		totals[m] = totals[m].Add(e.amount)
	}
	return totals, nil
}
