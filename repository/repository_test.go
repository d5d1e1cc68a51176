package repository

import (
	"context"
	"testing"

	"marquee/database"
	"marquee/models"

	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	// Create a temporary test database
	testDB, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	// Initialize schema
	if err := testDB.InitSchema(context.Background()); err != nil {
		t.Fatalf("Failed to initialize test schema: %v", err)
	}

	cleanup := func() {
		if err := testDB.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	}

	return testDB, cleanup
}

func createTestUser(t *testing.T, db *database.DB, id string) *models.User {
	user := &models.User{ID: id, Email: id + "@example.com", Name: "Test " + id}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func strPtr(s string) *string { return &s }
