package models

import "time"

type Waiter struct {
	ID           uint      `gorm:"primaryKey"`
	RestaurantID uint      `gorm:"not null;index:idx_waiters_restaurant_name,priority:1"`
	Name         string    `gorm:"type:varchar(255);not null;index:idx_waiters_restaurant_name,priority:2"`
	PasswordHash *string   `gorm:"type:varchar(255)"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Waiter) TableName() string {
	return "waiters"
}

// HasPassword reports whether login must check a credential.
func (w Waiter) HasPassword() bool {
	return w.PasswordHash != nil && *w.PasswordHash != ""
}

// Summary never carries the password hash.
func (w Waiter) Summary() WaiterSummary {
	return WaiterSummary{
		ID:           w.ID,
		RestaurantID: w.RestaurantID,
		Name:         w.Name,
		CreatedAt:    w.CreatedAt,
	}
}

type WaiterSummary struct {
	ID           uint      `json:"id"`
	RestaurantID uint      `json:"restaurantId"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LoginResult is returned on every successful login.
type LoginResult struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	RestaurantID uint      `json:"restaurantId"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
