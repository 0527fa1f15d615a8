package security

import (
	"bitwise74/account-api/internal/model"
	"errors"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet  = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSize  = 32
	tokenSize = 48
)

// GenerateToken returns n characters drawn from a crypto/rand backed source.
func GenerateToken(n int) (string, error) {
	return gonanoid.Generate(alphabet, n)
}

func MakeVerificationCode(userID uint, now time.Time) (*model.VerificationCode, error) {
	if userID == 0 {
		return nil, errors.New("no user ID provided")
	}

	code, err := GenerateToken(codeSize)
	if err != nil {
		return nil, err
	}

	return &model.VerificationCode{
		UserID:    userID,
		Code:      code,
		CreatedAt: now,
	}, nil
}

func MakePasswordResetToken(userID uint, now time.Time) (*model.PasswordResetToken, error) {
	if userID == 0 {
		return nil, errors.New("no user ID provided")
	}

	token, err := GenerateToken(tokenSize)
	if err != nil {
		return nil, err
	}

	return &model.PasswordResetToken{
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
	}, nil
}
