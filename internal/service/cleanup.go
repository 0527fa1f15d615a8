package service

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/store"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CleanupOpts struct {
	// Retention is how long dead rows are kept around after they stop
	// being useful
	Retention       time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

// TokenCleanup periodically removes expired or consumed tokens and finished
// jobs.
type TokenCleanup struct {
	db     *gorm.DB
	tokens *store.TokenStore
	opts   CleanupOpts
	now    func() time.Time
}

func NewTokenCleanup(db *gorm.DB, opts CleanupOpts) *TokenCleanup {
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 24 * time.Hour
	}

	return &TokenCleanup{
		db:     db,
		tokens: store.NewTokenStore(db),
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *TokenCleanup) Name() string {
	return "token_cleanup"
}

func (c *TokenCleanup) Run(ctx context.Context) error {
	now := c.now()
	cutoff := now.Add(-c.opts.Retention)

	resets, err := c.tokens.PurgeResetTokens(ctx, cutoff.Add(-c.opts.ResetTTL), cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge reset tokens, %w", err)
	}

	// Codes without a ttl stay until redeemed, the user has no other way in
	var codes int64
	if c.opts.VerificationTTL > 0 {
		codes, err = c.tokens.PurgeCodes(ctx, cutoff.Add(-c.opts.VerificationTTL))
		if err != nil {
			return fmt.Errorf("failed to purge verification codes, %w", err)
		}
	}

	finished, err := jobs.PurgeFinished(ctx, c.db, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge finished jobs, %w", err)
	}

	zap.L().Debug("Cleanup finished",
		zap.Int64("reset_tokens", resets),
		zap.Int64("verification_codes", codes),
		zap.Int64("jobs", finished))

	return nil
}
