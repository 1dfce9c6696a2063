package models

import "time"

// User represents a customer account of the store.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password  string    `json:"-" gorm:"type:varchar(255)"` // bcrypt hash, never serialized
	IsAdmin   bool      `json:"is_admin" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
