package mail

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/store"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HandlerOpts struct {
	// BaseURL is where the frontend lives, links are built on top of it
	BaseURL         string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// Handlers turn outbox jobs into emails.
type Handlers struct {
	users  *store.UserStore
	tokens *store.TokenStore
	sender Sender
	opts   HandlerOpts
	now    func() time.Time
}

func NewHandlers(db *gorm.DB, sender Sender, opts HandlerOpts) *Handlers {
	return &Handlers{
		users:  store.NewUserStore(db),
		tokens: store.NewTokenStore(db),
		sender: sender,
		opts:   opts,
		now:    time.Now,
	}
}

func (h *Handlers) Register(r *jobs.Registry) {
	r.Handle(jobs.KindWelcomeEmail, h.SendWelcome)
	r.Handle(jobs.KindResetPasswordEmail, h.SendResetPassword)
}

func (h *Handlers) SendWelcome(ctx context.Context, raw []byte) error {
	p, err := jobs.Decode[jobs.SendWelcomeEmail](raw)
	if err != nil {
		return err
	}

	user, err := h.users.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}

	data := map[string]any{"FirstName": user.FirstName}

	// Already verified users still get the welcome, just without a link
	if !user.Verified {
		code, err := h.tokens.FindCodeByUser(ctx, user.ID)
		switch {
		case err == nil:
			data["VerifyURL"] = h.link("/verify", "code", code.Code)
			if h.opts.VerificationTTL > 0 {
				data["ExpiresIn"] = h.opts.VerificationTTL.String()
			}
		case errors.Is(err, store.ErrNotFound):
			zap.L().Warn("No verification code for unverified user", zap.Uint("user_id", user.ID))
		default:
			return err
		}
	}

	body, err := render("welcome.html", data)
	if err != nil {
		return jobs.Permanent(err)
	}

	return h.sender.Send(ctx, user.Email, "Welcome! Please verify your email", body)
}

func (h *Handlers) SendResetPassword(ctx context.Context, raw []byte) error {
	p, err := jobs.Decode[jobs.SendResetPasswordEmail](raw)
	if err != nil {
		return err
	}

	token, err := h.tokens.FindResetTokenByID(ctx, p.ResetTokenID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}

	// A newer request or a completed reset makes this mail pointless
	if token.IsUsed() || token.IsExpired(h.now().UTC(), h.opts.ResetTTL) {
		zap.L().Debug("Skipping reset email for stale token", zap.Uint("token_id", token.ID))
		return nil
	}

	user, err := h.users.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return jobs.Permanent(err)
		}
		return err
	}

	body, err := render("reset_password.html", map[string]any{
		"FirstName": user.FirstName,
		"ResetURL":  h.link("/reset-password", "token", token.Token),
		"ExpiresIn": h.opts.ResetTTL.String(),
	})
	if err != nil {
		return jobs.Permanent(err)
	}

	return h.sender.Send(ctx, user.Email, "Reset your password", body)
}

func (h *Handlers) link(path, key, value string) string {
	return fmt.Sprintf("%s%s?%s", h.opts.BaseURL, path, url.Values{key: {value}}.Encode())
}
