package pgx

import (
	"context"
	"os"
	"testing"

	"github.com/pinewilt/kgcurate/backend/pkg/store"
	"github.com/pinewilt/kgcurate/backend/pkg/store/storetest"

	"github.com/stretchr/testify/require"
)

// Runs against a disposable database named by KGCURATE_TEST_DATABASE_URL.
func TestGraphDBStorage(t *testing.T) {
	url := os.Getenv("KGCURATE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("KGCURATE_TEST_DATABASE_URL not set")
	}
	require.NoError(t, Migrate("file://../../../migrations", url))

	storetest.Run(t, func(t *testing.T) store.GraphStorage {
		ctx := context.Background()
		s, pool, err := Open(ctx, url)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `TRUNCATE triples, relations, app_locks RESTART IDENTITY`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}
