package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-access/models"
	"github.com/yeremiapane/restaurant-access/utils"
	"gorm.io/gorm"
)

// Migration is one additive schema step. Up must be idempotent on its own so a
// database created by an older build converges regardless of what it recorded.
type Migration struct {
	Version string
	Up      func(tx *gorm.DB) error
}

var applyMu sync.Mutex

// Apply runs every migration not yet recorded in schema_migrations, in order,
// each inside its own transaction. Safe to call repeatedly and concurrently.
func Apply(ctx context.Context, db *gorm.DB, migrations []Migration) error {
	applyMu.Lock()
	defer applyMu.Unlock()

	db = db.WithContext(ctx)
	if err := db.AutoMigrate(&models.SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int64
		if err := db.Model(&models.SchemaMigration{}).Where("version = ?", m.Version).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %s: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&models.SchemaMigration{Version: m.Version, AppliedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}

		utils.InfoLogger.WithFields(logrus.Fields{"version": m.Version}).Info("applied migration")
	}
	return nil
}

// Applied lists recorded versions in the order they were applied.
func Applied(ctx context.Context, db *gorm.DB) ([]string, error) {
	var versions []string
	err := db.WithContext(ctx).Model(&models.SchemaMigration{}).
		Order("applied_at ASC, version ASC").
		Pluck("version", &versions).Error
	return versions, err
}

func createTable(model interface{}) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		if tx.Migrator().HasTable(model) {
			return nil
		}
		return tx.Migrator().CreateTable(model)
	}
}

func addColumn(model interface{}, field string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		if tx.Migrator().HasColumn(model, field) {
			return nil
		}
		return tx.Migrator().AddColumn(model, field)
	}
}

func createIndex(model interface{}, name string) func(tx *gorm.DB) error {
	return func(tx *gorm.DB) error {
		if tx.Migrator().HasIndex(model, name) {
			return nil
		}
		return tx.Migrator().CreateIndex(model, name)
	}
}

var AccessCodeMigrations = []Migration{
	{Version: "0001_access_codes", Up: createTable(&models.AccessCode{})},
	{Version: "0002_access_codes_used_at", Up: addColumn(&models.AccessCode{}, "UsedAt")},
	{Version: "0003_access_codes_code_index", Up: createIndex(&models.AccessCode{}, "idx_access_codes_code_active")},
}

var WaiterMigrations = []Migration{
	{Version: "0101_waiters", Up: createTable(&models.Waiter{})},
	{Version: "0102_waiters_password_hash", Up: addColumn(&models.Waiter{}, "PasswordHash")},
	{Version: "0103_access_tokens", Up: createTable(&models.AccessToken{})},
}
