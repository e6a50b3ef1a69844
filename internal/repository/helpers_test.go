package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/mkovalev/budget-bot/internal/database"
	"gitlab.com/mkovalev/budget-bot/internal/models"
)

// Test user IDs are unique per test function so transactions never
// contend on the same user row.

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedTestUser(t *testing.T, ctx context.Context, db database.PGXDB, id int64) {
	t.Helper()
	err := NewUserRepository(db).Upsert(ctx, &models.User{ID: id, Username: "tester", FirstName: "Тест"})
	require.NoError(t, err)
}

// setCreatedAt rewrites a row's created_at so window queries can be
// exercised. Inserts within one transaction all share the transaction
// timestamp, so this is the only way to get distinct times in a test.
func setCreatedAt(t *testing.T, ctx context.Context, db database.PGXDB, table string, id int, ts time.Time) {
	t.Helper()
	_, err := db.Exec(ctx, `UPDATE `+table+` SET created_at = $2 WHERE id = $1`, id, ts)
	require.NoError(t, err)
}
