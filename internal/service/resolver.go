// Package service implements the bot's domain logic: category resolution
// with alias learning, monthly budget planning with carry-over, report
// aggregation, planned expenses, saving goals and reminders. All money
// math uses shopspring decimals; all state lives behind small store
// interfaces satisfied by the repository package.
package service

import (
	"context"
	"fmt"
	"strings"

	"gitlab.com/mkovalev/budget-bot/internal/logger"
	"gitlab.com/mkovalev/budget-bot/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Match reports how a category was resolved. Callers use it to decide
// whether to offer a follow-up choice to the user.
type Match int

const (
	// MatchExact means the text matched a category name or alias directly.
	MatchExact Match = iota
	// MatchFuzzy means a substring match resolved the text and the input
	// was learned as a new alias.
	MatchFuzzy
	// MatchFallback means nothing matched and the catch-all category was
	// used.
	MatchFallback
)

// CategoryStore is the storage surface the resolver needs.
type CategoryStore interface {
	GetByName(ctx context.Context, name string) (*models.Category, error)
	GetOrCreate(ctx context.Context, name string) (*models.Category, error)
	FindByNameContaining(ctx context.Context, text string) (*models.Category, error)
	GetAliasByName(ctx context.Context, alias string) (*models.Category, error)
	FindAliasContaining(ctx context.Context, text string) (*models.Category, error)
	CreateAliasIfAbsent(ctx context.Context, categoryID int, alias string) error
}

// CategoryResolver maps free category text to a canonical category,
// learning aliases from fuzzy matches as it goes.
type CategoryResolver struct {
	store CategoryStore
	title cases.Caser
}

// NewCategoryResolver creates a CategoryResolver over the given store.
func NewCategoryResolver(store CategoryStore) *CategoryResolver {
	return &CategoryResolver{
		store: store,
		title: cases.Title(language.Und),
	}
}

// Normalize trims the text and title-cases it. Every comparison and every
// learned alias uses the normalized form.
func (r *CategoryResolver) Normalize(text string) string {
	return r.title.String(strings.TrimSpace(text))
}

// Resolve finds the category for free text. Resolution order: exact name,
// exact alias, alias substring, name substring, then the catch-all
// category. Substring hits persist the input as a new alias so the next
// resolution of the same text is exact. Alias writes are insert-or-ignore:
// concurrent resolutions of the same unknown text are expected.
func (r *CategoryResolver) Resolve(ctx context.Context, text string) (*models.Category, Match, error) {
	normalized := r.Normalize(text)
	if normalized == "" {
		cat, err := r.fallback(ctx)
		return cat, MatchFallback, err
	}

	cat, err := r.store.GetByName(ctx, normalized)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve category: %w", err)
	}
	if cat != nil {
		return cat, MatchExact, nil
	}

	cat, err = r.store.GetAliasByName(ctx, normalized)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve category: %w", err)
	}
	if cat != nil {
		return cat, MatchExact, nil
	}

	cat, err = r.store.FindAliasContaining(ctx, normalized)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve category: %w", err)
	}
	if cat == nil {
		cat, err = r.store.FindByNameContaining(ctx, normalized)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve category: %w", err)
		}
	}
	if cat != nil {
		if err := r.store.CreateAliasIfAbsent(ctx, cat.ID, normalized); err != nil {
			return nil, 0, fmt.Errorf("learn alias: %w", err)
		}
		logger.Log.Debug().
			Str("category", cat.Name).
			Msg("learned category alias")
		return cat, MatchFuzzy, nil
	}

	cat, err = r.fallback(ctx)
	return cat, MatchFallback, err
}

// GetOrCreateExact returns the category with the normalized name, or the
// category of an exact alias, creating the category when neither exists.
// Unlike Resolve it never substring-matches; used when the user explicitly
// asks for a new category.
func (r *CategoryResolver) GetOrCreateExact(ctx context.Context, name string) (*models.Category, error) {
	normalized := r.Normalize(name)
	if normalized == "" {
		return r.fallback(ctx)
	}

	cat, err := r.store.GetByName(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	if cat != nil {
		return cat, nil
	}

	cat, err = r.store.GetAliasByName(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("get category alias: %w", err)
	}
	if cat != nil {
		return cat, nil
	}

	cat, err = r.store.GetOrCreate(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return cat, nil
}

// fallback returns the catch-all category, creating it when absent so it
// always exists from the caller's point of view.
func (r *CategoryResolver) fallback(ctx context.Context) (*models.Category, error) {
	cat, err := r.store.GetOrCreate(ctx, models.FallbackCategoryName)
	if err != nil {
		return nil, fmt.Errorf("fallback category: %w", err)
	}
	return cat, nil
}
