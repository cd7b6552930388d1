package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/movecrm-api/internal/domain/entity"
	"github.com/sangkips/movecrm-api/internal/domain/enum"
	"github.com/sangkips/movecrm-api/internal/infrastructure/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:", database.NewGormConfig("silent"))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()

	user := &entity.User{FirstName: "Test", LastName: "Agent", Email: email, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestClient(t *testing.T, db *gorm.DB, owner uuid.UUID, name string, createdAt time.Time) *entity.Client {
	t.Helper()

	client := &entity.Client{
		UserID:         owner,
		Name:           name,
		CurrentStage:   enum.ClientStageLeadCaptured,
		Classification: enum.ClassificationLead,
		CreatedAt:      createdAt.UTC(),
	}
	require.NoError(t, NewClientRepository(db).Create(context.Background(), client))
	return client
}

func strPtr(s string) *string {
	return &s
}
