package model

import "time"

type PasswordResetToken struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    uint   `gorm:"index;not null"`
	Token     string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
	UsedAt    *time.Time
}

// IsExpired is true from CreatedAt+ttl onwards, the boundary itself included.
func (t *PasswordResetToken) IsExpired(now time.Time, ttl time.Duration) bool {
	return !now.Before(t.CreatedAt.Add(ttl))
}

func (t *PasswordResetToken) IsUsed() bool {
	return t.UsedAt != nil
}
