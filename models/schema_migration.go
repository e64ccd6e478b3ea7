package models

import "time"

type SchemaMigration struct {
	Version   string    `gorm:"type:varchar(100);primaryKey"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}
