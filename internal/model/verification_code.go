package model

import "time"

// VerificationCode proves ownership of a user's email address. A user has at
// most one outstanding code and it is deleted once redeemed.
type VerificationCode struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Code      string `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}

// IsExpired reports whether the code is past its ttl. A ttl of zero means
// codes never expire.
func (c *VerificationCode) IsExpired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}

	return !now.Before(c.CreatedAt.Add(ttl))
}
