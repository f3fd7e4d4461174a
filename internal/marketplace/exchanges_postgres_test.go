package marketplace

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillswap/internal/db"
	"github.com/sudo-init-do/skillswap/internal/store"
)

// TestPostgresConcurrentCompletion races two completions on a real database,
// where both transactions can read the exchange before either writes it.
// Set TEST_DATABASE_URL to a disposable database to enable it.
func TestPostgresConcurrentCompletion(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "Failed to connect to test database")
	defer pool.Close()

	require.NoError(t, db.EnsureSchema(ctx, pool))
	cleanup := func() {
		for _, table := range []string{"notifications", "token_ledger", "exchange_messages", "exchanges", "user_badges", "users"} {
			if _, err := pool.Exec(ctx, "DELETE FROM "+table); err != nil {
				t.Logf("Warning: Failed to clean %s: %v", table, err)
			}
		}
	}
	cleanup()
	defer cleanup()

	for i := 0; i < 5; i++ {
		cleanup()
		raceCompletion(t, newFixtureOn(t, store.NewPostgres(pool)))
	}
}
