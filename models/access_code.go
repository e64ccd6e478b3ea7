package models

import "time"

// AccessCode binds a table and optionally a waiter to a restaurant for a bounded time.
// Rows are never deleted; IsActive is reserved for deactivation.
type AccessCode struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Code         string     `gorm:"type:varchar(4);not null;index:idx_access_codes_code_active,priority:1" json:"code"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurantId"`
	TableNumber  *string    `gorm:"type:varchar(50)" json:"tableNumber"`
	WaiterID     *uint      `gorm:"index" json:"waiterId"`
	CreatedAt    time.Time  `gorm:"not null" json:"createdAt"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	UsedAt       *time.Time `json:"usedAt"`
	IsActive     bool       `gorm:"not null;default:true;index:idx_access_codes_code_active,priority:2" json:"isActive"`
}

func (AccessCode) TableName() string {
	return "access_codes"
}

// Expired reports whether the code has an expiry at or before now.
func (a AccessCode) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// IssuedCode is what a caller receives when a code is issued.
type IssuedCode struct {
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expiresAt"`
}
