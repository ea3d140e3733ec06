package models

import "time"

// User mirrors an identity-provider account. UserID is the stable subject
// from the validated token; rows are provisioned on first authenticated
// request. PasswordHash is only set for local-auth accounts.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID       string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"user_id"`
	Username     string    `gorm:"type:varchar(64);index;not null" json:"username"`
	Email        string    `gorm:"type:varchar(128);index" json:"email,omitempty"`
	PasswordHash string    `gorm:"type:varchar(128)" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
