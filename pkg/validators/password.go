package validators

import (
	"errors"
	"fmt"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

// MinPasswordEntropy is the minimum strength in bits a new password needs.
const MinPasswordEntropy = 50

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong  = errors.New("password is too long")
	ErrPasswordEmpty    = errors.New("no password provided")
	ErrPasswordWeak     = errors.New("password is too weak")
)

func PasswordValidator(p string) error {
	if p == "" {
		return ErrPasswordEmpty
	}

	if len(p) < 8 {
		return ErrPasswordTooShort
	}

	if len(p) > 255 {
		return ErrPasswordTooLong
	}

	if err := passwordvalidator.Validate(p, MinPasswordEntropy); err != nil {
		return fmt.Errorf("%w, %w", ErrPasswordWeak, err)
	}

	return nil
}
