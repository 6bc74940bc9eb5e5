// Package testutil provides an in-memory SQLite database with the full schema for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"Lens_Community/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns an isolated database. A single connection keeps the
// in-memory database alive and serializes writers.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:lens_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		Role:     model.RolePhotographer,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePhoto inserts a photo owned by userID in the given status.
func CreatePhoto(t *testing.T, db *gorm.DB, userID uint64, status model.PhotoStatus) *model.Photo {
	t.Helper()
	p := &model.Photo{
		UserID:   userID,
		Title:    "photo",
		FilePath: "uploads/x.jpg",
		Status:   status,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
