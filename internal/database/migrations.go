package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema. Unique constraints double as
// the race arbiters for alias learning and derive-on-read plan creation,
// so repositories never need in-process locks.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			last_name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS category_aliases (
			id SERIAL PRIMARY KEY,
			category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			alias TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_category_aliases_category_id ON category_aliases(category_id)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount DECIMAL(12, 2) NOT NULL,
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
			chat_id BIGINT,
			raw_text TEXT NOT NULL DEFAULT '',
			message_id INTEGER,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_created ON expenses(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_chat_id ON expenses(chat_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category_id ON expenses(category_id)`,

		`CREATE TABLE IF NOT EXISTS incomes (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount DECIMAL(12, 2) NOT NULL,
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
			description TEXT NOT NULL DEFAULT '',
			chat_id BIGINT,
			raw_text TEXT NOT NULL DEFAULT '',
			message_id INTEGER,
			deleted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incomes_user_created ON incomes(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_incomes_chat_id ON incomes(chat_id)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			category_id INTEGER REFERENCES categories(id) ON DELETE CASCADE,
			limit_amount DECIMAL(12, 2) NOT NULL,
			period TEXT NOT NULL DEFAULT 'monthly',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE NULLS NOT DISTINCT (user_id, category_id)
		)`,

		`CREATE TABLE IF NOT EXISTS monthly_budget_plans (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			month DATE NOT NULL,
			category_id INTEGER REFERENCES categories(id) ON DELETE CASCADE,
			planned_limit DECIMAL(12, 2) NOT NULL,
			carry_over DECIMAL(12, 2) NOT NULL DEFAULT 0,
			carry_over_applied BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_monthly_plan UNIQUE NULLS NOT DISTINCT (user_id, month, category_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monthly_plans_user_month ON monthly_budget_plans(user_id, month)`,

		`CREATE TABLE IF NOT EXISTS vacation_periods (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			budget_multiplier DECIMAL(4, 2) NOT NULL DEFAULT 1.50,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (start_date <= end_date),
			CHECK (budget_multiplier > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vacation_periods_user ON vacation_periods(user_id, start_date, end_date)`,

		`CREATE TABLE IF NOT EXISTS planned_expenses (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount DECIMAL(12, 2) NOT NULL,
			category_id INTEGER REFERENCES categories(id) ON DELETE SET NULL,
			description TEXT NOT NULL,
			planned_date DATE NOT NULL,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			linked_expense_id INTEGER REFERENCES expenses(id) ON DELETE SET NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_planned_expenses_user_date ON planned_expenses(user_id, planned_date)`,

		`CREATE TABLE IF NOT EXISTS saving_goals (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			target_amount DECIMAL(12, 2) NOT NULL,
			current_amount DECIMAL(12, 2) NOT NULL DEFAULT 0,
			deadline DATE,
			is_achieved BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS income_schedules (
			id SERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			day_of_month SMALLINT NOT NULL CHECK (day_of_month BETWEEN 1 AND 31),
			expected_amount DECIMAL(12, 2),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_income_schedules_active ON income_schedules(user_id, is_active)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// SeedCategories inserts the base expense categories.
func SeedCategories(ctx context.Context, pool *pgxpool.Pool) error {
	categories := []string{
		"Продукты",
		"Транспорт",
		"Кафе И Рестораны",
		"Жильё",
		"Связь",
		"Здоровье",
		"Развлечения",
		"Одежда",
		"Подарки",
		"Образование",
		"Путешествия",
		"Прочее",
	}

	for _, cat := range categories {
		_, err := pool.Exec(ctx,
			`INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			cat,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat, err)
		}
	}

	return nil
}
