// Package dbtest opens throwaway in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/yeremiapane/restaurant-access/database"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open returns an empty database private to the calling test. The pool is
// pinned to one connection so the in-memory database lives as long as the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:dbtest_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// Migrated is Open with every schema migration applied.
func Migrated(t testing.TB) *gorm.DB {
	t.Helper()

	db := Open(t)
	ctx := context.Background()
	if err := database.Apply(ctx, db, database.AccessCodeMigrations); err != nil {
		t.Fatalf("access code migrations: %v", err)
	}
	if err := database.Apply(ctx, db, database.WaiterMigrations); err != nil {
		t.Fatalf("waiter migrations: %v", err)
	}
	return db
}
