package database_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"taskboard/database"
	"taskboard/database/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) database.Store {
		return database.NewMemoryStore()
	})
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("TASKBOARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TASKBOARD_TEST_DATABASE_URL is not set")
	}
	storetest.Run(t, func(t *testing.T) database.Store {
		ctx := context.Background()
		db, err := database.ConnectPostgres(ctx, dsn)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		_, err = db.ExecContext(ctx, `TRUNCATE tasks, lists, workspaces, users`)
		require.NoError(t, err)
		s := database.NewPostgresStore(db)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("TASKBOARD_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TASKBOARD_TEST_MONGO_URI is not set")
	}
	storetest.Run(t, func(t *testing.T) database.Store {
		ctx := context.Background()
		s, err := database.ConnectMongo(ctx, uri, "taskboard_test")
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx))
		t.Cleanup(func() { s.Close() })
		return s
	})
}
