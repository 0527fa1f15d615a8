package store

import (
	"bitwise74/account-api/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) FindByCode(ctx context.Context, code string) (*model.VerificationCode, error) {
	var c model.VerificationCode
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, wrapErr(err)
	}

	return &c, nil
}

func (s *TokenStore) FindCodeByUser(ctx context.Context, userID uint) (*model.VerificationCode, error) {
	var c model.VerificationCode
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, wrapErr(err)
	}

	return &c, nil
}

func (s *TokenStore) SaveCode(ctx context.Context, c *model.VerificationCode) error {
	return wrapErr(s.db.WithContext(ctx).Save(c).Error)
}

func (s *TokenStore) DeleteCode(ctx context.Context, c *model.VerificationCode) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND code = ?", c.ID, c.Code).
		Delete(&model.VerificationCode{})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

func (s *TokenStore) FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		return nil, wrapErr(err)
	}

	return &t, nil
}

func (s *TokenStore) FindResetTokenByID(ctx context.Context, id uint) (*model.PasswordResetToken, error) {
	var t model.PasswordResetToken
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, wrapErr(err)
	}

	return &t, nil
}

func (s *TokenStore) SaveResetToken(ctx context.Context, t *model.PasswordResetToken) error {
	return wrapErr(s.db.WithContext(ctx).Save(t).Error)
}

func (s *TokenStore) ConsumeResetToken(ctx context.Context, t *model.PasswordResetToken, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", t.ID).
		Update("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}

	if res.RowsAffected != 1 {
		return false, nil
	}

	t.UsedAt = &at
	return true, nil
}

func (s *TokenStore) RevokeResetTokens(ctx context.Context, userID uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.PasswordResetToken{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", at).
		Error
}

// PurgeResetTokens deletes reset tokens created before createdBefore or
// consumed before usedBefore.
func (s *TokenStore) PurgeResetTokens(ctx context.Context, createdBefore, usedBefore time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ? OR used_at < ?", createdBefore, usedBefore).
		Delete(&model.PasswordResetToken{})

	return res.RowsAffected, res.Error
}

func (s *TokenStore) PurgeCodes(ctx context.Context, createdBefore time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", createdBefore).
		Delete(&model.VerificationCode{})

	return res.RowsAffected, res.Error
}
