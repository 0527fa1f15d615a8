// Package model defines database models
package model

import "time"

type User struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	Email        string  `gorm:"uniqueIndex;not null"`
	PasswordHash *string // nil for accounts that never set a password
	Verified     bool    `gorm:"default:false"`
	FirstName    string  `gorm:"size:100"`
	LastName     string  `gorm:"size:100"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserResponse is the public projection of a user. It never carries
// credential material.
type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

func (u *User) Response() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}
