// Package store contains the repositories the account service works through
// and their gorm implementations.
package store

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id uint) (*model.User, error)
	// GetReference loads a user for modification. On databases that
	// support it the row stays locked until the transaction ends.
	GetReference(ctx context.Context, id uint) (*model.User, error)
	Save(ctx context.Context, u *model.User) error
}

type TokenRepository interface {
	FindByCode(ctx context.Context, code string) (*model.VerificationCode, error)
	FindCodeByUser(ctx context.Context, userID uint) (*model.VerificationCode, error)
	SaveCode(ctx context.Context, c *model.VerificationCode) error
	// DeleteCode reports whether this call removed the row.
	DeleteCode(ctx context.Context, c *model.VerificationCode) (bool, error)

	FindByToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	FindResetTokenByID(ctx context.Context, id uint) (*model.PasswordResetToken, error)
	SaveResetToken(ctx context.Context, t *model.PasswordResetToken) error
	// ConsumeResetToken marks t used at the given time. It reports false if
	// the token had already been consumed.
	ConsumeResetToken(ctx context.Context, t *model.PasswordResetToken, at time.Time) (bool, error)
	RevokeResetTokens(ctx context.Context, userID uint, at time.Time) error
}

// Repositories is the unit of work handed to a transaction body.
type Repositories interface {
	Users() UserRepository
	Tokens() TokenRepository
	Jobs() jobs.Dispatcher
}

// Transactor runs fn inside a transaction. Returning an error from fn rolls
// back every write made through its Repositories, outbox jobs included.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error
}

func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w, %w", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w, %w", ErrDuplicate, err)
	default:
		return err
	}
}
