package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTestPool_Shared(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	// Repeated calls hand out the same pool.
	require.Same(t, TestPool(t), TestPool(t))
}

func TestTestTx_RoundTrip(t *testing.T) {
	if os.Getenv("TEST_DATABASE_URL") == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db := TestTx(t)
	require.NotNil(t, db)

	var n int
	err := db.QueryRow(context.Background(), "SELECT 1").Scan(&n)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The seed ran, so the transaction sees the default categories.
	var count int
	err = db.QueryRow(context.Background(), "SELECT COUNT(*) FROM categories").Scan(&count)
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, 12)
}
