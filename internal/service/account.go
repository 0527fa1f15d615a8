// Package service contains the account lifecycle logic and the background
// tasks that support it.
package service

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/apperr"
	"bitwise74/account-api/pkg/security"
	"bitwise74/account-api/pkg/validators"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

type AccountOpts struct {
	// VerificationTTL of zero means verification codes never expire
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type AccountService struct {
	tx    store.Transactor
	argon *security.ArgonHash
	opts  AccountOpts
	now   func() time.Time
}

func NewAccountService(tx store.Transactor, argon *security.ArgonHash, opts AccountOpts) *AccountService {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 24 * time.Hour
	}

	return &AccountService{
		tx:    tx,
		argon: argon,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified account and queues its welcome email.
func (s *AccountService) Register(ctx context.Context, req CreateUserRequest) (*model.UserResponse, error) {
	req.Email = validators.NormalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	if err := validators.Struct(req); err != nil {
		return nil, apperr.Validation(err)
	}

	if err := validators.EmailValidator(req.Email); err != nil {
		return nil, apperr.Validation(err)
	}

	if err := validators.PasswordValidator(req.Password); err != nil {
		return nil, apperr.Validation(err)
	}

	hash, err := s.argon.GenerateFromPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password, %w", err)
	}

	var user *model.User

	err = s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		_, err := r.Users().FindByEmail(ctx, req.Email)
		if err == nil {
			return apperr.ErrEmailTaken
		}

		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to check if user is registered, %w", err)
		}

		user = &model.User{
			Email:        req.Email,
			PasswordHash: &hash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
		}

		if err := r.Users().Save(ctx, user); err != nil {
			// Lost a race against a concurrent registration
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.ErrEmailTaken
			}

			return fmt.Errorf("failed to create user, %w", err)
		}

		return s.issueVerificationCode(ctx, r, user)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("User registered", zap.Uint("user_id", user.ID))
	return user.Response(), nil
}

func (s *AccountService) issueVerificationCode(ctx context.Context, r store.Repositories, user *model.User) error {
	code, err := security.MakeVerificationCode(user.ID, s.now())
	if err != nil {
		return fmt.Errorf("failed to generate verification code, %w", err)
	}

	if err := r.Tokens().SaveCode(ctx, code); err != nil {
		return fmt.Errorf("failed to save verification code, %w", err)
	}

	if err := r.Jobs().Dispatch(ctx, jobs.SendWelcomeEmail{UserID: user.ID}); err != nil {
		return fmt.Errorf("failed to queue welcome email, %w", err)
	}

	return nil
}

// VerifyEmail redeems a verification code. Each code works exactly once.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return apperr.ErrInvalidToken
	}

	return s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		vc, err := r.Tokens().FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrInvalidToken
			}

			return fmt.Errorf("failed to look up verification code, %w", err)
		}

		if vc.IsExpired(s.now(), s.opts.VerificationTTL) {
			return apperr.ErrExpiredToken.WithMessage("Verification code is expired, please request a new one")
		}

		deleted, err := r.Tokens().DeleteCode(ctx, vc)
		if err != nil {
			return fmt.Errorf("failed to delete verification code, %w", err)
		}

		if !deleted {
			return apperr.ErrInvalidToken
		}

		user, err := r.Users().GetReference(ctx, vc.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user %d, %w", vc.UserID, err)
		}

		user.Verified = true
		if err := r.Users().Save(ctx, user); err != nil {
			return fmt.Errorf("failed to mark user as verified, %w", err)
		}

		zap.L().Info("User verified", zap.Uint("user_id", user.ID))
		return nil
	})
}

// ResendVerification replaces the outstanding code of an unverified user and
// queues a fresh welcome email.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return apperr.Validation(err)
	}

	return s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		user, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrUserNotFound
			}

			return fmt.Errorf("failed to look up user, %w", err)
		}

		if user.Verified {
			return apperr.ErrAlreadyVerified
		}

		old, err := r.Tokens().FindCodeByUser(ctx, user.ID)
		switch {
		case err == nil:
			if _, err := r.Tokens().DeleteCode(ctx, old); err != nil {
				return fmt.Errorf("failed to delete old verification code, %w", err)
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to look up verification code, %w", err)
		}

		return s.issueVerificationCode(ctx, r, user)
	})
}

// ForgotPassword issues a new reset token and queues the email carrying it.
// Older tokens of the user stop working.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = validators.NormalizeEmail(email)
	if err := validators.EmailValidator(email); err != nil {
		return apperr.Validation(err)
	}

	return s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		user, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrUserNotFound
			}

			return fmt.Errorf("failed to look up user, %w", err)
		}

		now := s.now()

		if err := r.Tokens().RevokeResetTokens(ctx, user.ID, now); err != nil {
			return fmt.Errorf("failed to revoke old reset tokens, %w", err)
		}

		token, err := security.MakePasswordResetToken(user.ID, now)
		if err != nil {
			return fmt.Errorf("failed to generate reset token, %w", err)
		}

		if err := r.Tokens().SaveResetToken(ctx, token); err != nil {
			return fmt.Errorf("failed to save reset token, %w", err)
		}

		if err := r.Jobs().Dispatch(ctx, jobs.SendResetPasswordEmail{ResetTokenID: token.ID}); err != nil {
			return fmt.Errorf("failed to queue reset email, %w", err)
		}

		zap.L().Info("Password reset requested", zap.Uint("user_id", user.ID))
		return nil
	})
}

// ResetPassword sets a new password using a reset token. A token can only be
// redeemed once.
func (s *AccountService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	req.Token = strings.TrimSpace(req.Token)

	if err := validators.Struct(req); err != nil {
		return apperr.Validation(err)
	}

	if err := validators.PasswordValidator(req.Password); err != nil {
		return apperr.Validation(err)
	}

	hash, err := s.argon.GenerateFromPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password, %w", err)
	}

	return s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		token, err := r.Tokens().FindByToken(ctx, req.Token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrInvalidToken
			}

			return fmt.Errorf("failed to look up reset token, %w", err)
		}

		if token.IsUsed() {
			return apperr.ErrTokenUsed.WithMessage("Password reset token was already used")
		}

		now := s.now()

		if token.IsExpired(now, s.opts.ResetTTL) {
			return apperr.ErrExpiredToken.WithMessage("Password reset token is expired")
		}

		consumed, err := r.Tokens().ConsumeResetToken(ctx, token, now)
		if err != nil {
			return fmt.Errorf("failed to consume reset token, %w", err)
		}

		if !consumed {
			return apperr.ErrTokenUsed.WithMessage("Password reset token was already used")
		}

		user, err := r.Users().GetReference(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user %d, %w", token.UserID, err)
		}

		user.PasswordHash = &hash
		if err := r.Users().Save(ctx, user); err != nil {
			return fmt.Errorf("failed to save new password, %w", err)
		}

		zap.L().Info("Password reset", zap.Uint("user_id", user.ID))
		return nil
	})
}

// UpdatePassword changes the password of the caller. Accounts without a
// password can set one without providing the old one.
func (s *AccountService) UpdatePassword(ctx context.Context, p Principal, req UpdatePasswordRequest) (*model.UserResponse, error) {
	if err := validators.Struct(req); err != nil {
		return nil, apperr.Validation(err)
	}

	if err := validators.PasswordValidator(req.Password); err != nil {
		return nil, apperr.Validation(err)
	}

	var user *model.User

	err := s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		var err error

		user, err = r.Users().GetReference(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrUserNotFound
			}

			return fmt.Errorf("failed to load user %d, %w", p.UserID, err)
		}

		if user.HasPassword() {
			ok, err := s.argon.VerifyPasswd(req.OldPassword, *user.PasswordHash)
			if err != nil {
				return fmt.Errorf("failed to verify password, %w", err)
			}

			if !ok {
				return apperr.ErrInvalidCredential
			}
		}

		hash, err := s.argon.GenerateFromPassword(req.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password, %w", err)
		}

		user.PasswordHash = &hash
		if err := r.Users().Save(ctx, user); err != nil {
			return fmt.Errorf("failed to save new password, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Password updated", zap.Uint("user_id", user.ID))
	return user.Response(), nil
}

// UpdateProfile changes the name fields of the caller. Credentials and
// verification state are never touched.
func (s *AccountService) UpdateProfile(ctx context.Context, p Principal, req UpdateUserRequest) (*model.UserResponse, error) {
	if err := validators.Struct(req); err != nil {
		return nil, apperr.Validation(err)
	}

	var user *model.User

	err := s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		var err error

		user, err = r.Users().GetReference(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrUserNotFound
			}

			return fmt.Errorf("failed to load user %d, %w", p.UserID, err)
		}

		if req.FirstName != nil {
			user.FirstName = strings.TrimSpace(*req.FirstName)
		}

		if req.LastName != nil {
			user.LastName = strings.TrimSpace(*req.LastName)
		}

		if err := r.Users().Save(ctx, user); err != nil {
			return fmt.Errorf("failed to update user, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user.Response(), nil
}

// Authenticate checks a login attempt. Unknown emails and wrong passwords
// look the same to the caller.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*model.UserResponse, error) {
	email = validators.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.ErrBadLogin
	}

	var user *model.User

	err := s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		var err error

		user, err = r.Users().FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrBadLogin
			}

			return fmt.Errorf("failed to look up user, %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !user.HasPassword() {
		return nil, apperr.ErrBadLogin
	}

	ok, err := s.argon.VerifyPasswd(password, *user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password, %w", err)
	}

	if !ok {
		return nil, apperr.ErrBadLogin
	}

	return user.Response(), nil
}

func (s *AccountService) Me(ctx context.Context, p Principal) (*model.UserResponse, error) {
	var user *model.User

	err := s.tx.InTx(ctx, func(ctx context.Context, r store.Repositories) error {
		var err error

		user, err = r.Users().FindByID(ctx, p.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.ErrUserNotFound
			}

			return fmt.Errorf("failed to load user %d, %w", p.UserID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return user.Response(), nil
}
