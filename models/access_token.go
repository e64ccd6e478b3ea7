package models

import "time"

// AccessToken is an opaque bearer credential for one waiter.
type AccessToken struct {
	ID        uint      `gorm:"primaryKey"`
	Token     string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	WaiterID  uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (AccessToken) TableName() string {
	return "access_tokens"
}
