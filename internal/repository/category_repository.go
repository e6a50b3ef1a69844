// Package repository provides database access for domain entities.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE metacharacters so user text is matched
// literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// CategoryRepository handles category and alias database operations.
// Categories and aliases are shared reference data mutated from any
// concurrent resolution path, so all writes are insert-or-ignore on the
// unique name/alias constraints.
type CategoryRepository struct {
	db database.PGXDB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db database.PGXDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll retrieves all categories ordered by name.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, created_at FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at FROM categories WHERE id = $1
	`, id).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &cat, nil
}

// GetByName retrieves a category by name (case-insensitive).
// Returns (nil, nil) when no category matches.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at FROM categories WHERE LOWER(name) = LOWER($1)
	`, name).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by name: %w", err)
	}
	return &cat, nil
}

// FindByNameContaining retrieves the first category whose name contains
// the given text (case-insensitive). Returns (nil, nil) when none match.
func (r *CategoryRepository) FindByNameContaining(ctx context.Context, text string) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at FROM categories
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT 1
	`, escapeLike(text)).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find category by substring: %w", err)
	}
	return &cat, nil
}

// GetOrCreate returns the category with the given name, creating it if
// absent. Safe under concurrent creation of the same name.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, name string) (*models.Category, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
	`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	cat, err := r.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("category %q missing after insert", name)
	}
	return cat, nil
}

// GetAliasByName retrieves the category an alias resolves to, matching
// the alias case-insensitively. Returns (nil, nil) when no alias matches.
func (r *CategoryRepository) GetAliasByName(ctx context.Context, alias string) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.name, c.created_at
		FROM category_aliases a
		JOIN categories c ON c.id = a.category_id
		WHERE LOWER(a.alias) = LOWER($1)
	`, alias).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alias: %w", err)
	}
	return &cat, nil
}

// FindAliasContaining retrieves the category of the first alias that
// contains the given text (case-insensitive). Returns (nil, nil) when
// none match.
func (r *CategoryRepository) FindAliasContaining(ctx context.Context, text string) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.name, c.created_at
		FROM category_aliases a
		JOIN categories c ON c.id = a.category_id
		WHERE a.alias ILIKE '%' || $1 || '%'
		ORDER BY a.alias
		LIMIT 1
	`, escapeLike(text)).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alias by substring: %w", err)
	}
	return &cat, nil
}

// CreateAliasIfAbsent learns a new alias for a category. Creating an
// alias that already exists is a no-op, not an error: concurrent
// resolutions of the same unknown text are expected.
func (r *CategoryRepository) CreateAliasIfAbsent(ctx context.Context, categoryID int, alias string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO category_aliases (category_id, alias) VALUES ($1, $2)
		ON CONFLICT (alias) DO NOTHING
	`, categoryID, alias)
	if err != nil {
		return fmt.Errorf("failed to create alias: %w", err)
	}
	return nil
}

// GetAliases retrieves all aliases of a category ordered by alias text.
func (r *CategoryRepository) GetAliases(ctx context.Context, categoryID int) ([]models.CategoryAlias, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, category_id, alias, created_at
		FROM category_aliases WHERE category_id = $1 ORDER BY alias
	`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []models.CategoryAlias
	for rows.Next() {
		var a models.CategoryAlias
		if err := rows.Scan(&a.ID, &a.CategoryID, &a.Alias, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aliases: %w", err)
	}
	return aliases, nil
}
