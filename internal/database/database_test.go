package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect_BadTargets(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a malformed connection string", func(t *testing.T) {
		pool, err := Connect(ctx, "invalid://connection")
		require.Error(t, err)
		require.Nil(t, pool)
	})

	t.Run("fails fast on an unreachable host", func(t *testing.T) {
		pool, err := Connect(ctx, "postgres://localhost:59999/nonexistent?connect_timeout=1")
		require.Error(t, err)
		require.Nil(t, pool)
	})
}
