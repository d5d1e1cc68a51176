package lists

import (
	"context"
	"testing"

	"marquee/database"
	"marquee/models"
	"marquee/repository"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	watched   *WatchedService
	watchlist *WatchlistService
}

func setupTestEnv(t *testing.T) *testEnv {
	db, err := database.NewDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(context.Background()))
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	users := repository.NewUserRepository(db)
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, users.Create(context.Background(), &models.User{ID: id, Email: id + "@example.com"}))
	}

	return &testEnv{
		watched:   NewWatchedService(repository.NewWatchedRepository(db)),
		watchlist: NewWatchlistService(repository.NewWatchlistRepository(db)),
	}
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func validWatched() WatchedInput {
	return WatchedInput{
		TMDBID:      155,
		Type:        models.MediaTypeMovie,
		WatchedDate: "2024-01-01",
		Rating:      intPtr(9),
		Notes:       strPtr("great"),
	}
}
