package models

import (
	"time"
)

// User is one half of the fixed two-user universe. PartnerID points at the
// user's one and only counterparty; a report's receiver is always the
// creator's partner.
type User struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	Email       string `gorm:"size:255;not null;uniqueIndex"`
	DisplayName string `gorm:"size:255;not null"`
	PartnerID   string `gorm:"type:char(36);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
