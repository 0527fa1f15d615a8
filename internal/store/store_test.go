package store

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/testutil"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(testutil.NewDB(t))

	u := &model.User{Email: "ann@example.com", FirstName: "Ann"}
	require.NoError(t, s.Save(ctx, u))
	require.NotZero(t, u.ID)

	got, err := s.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.GetReference(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)

	_, err = s.FindByID(ctx, u.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := NewUserStore(testutil.NewDB(t))

	require.NoError(t, s.Save(ctx, &model.User{Email: "dup@example.com"}))

	err := s.Save(ctx, &model.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestTokenStore_DeleteCodeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(testutil.NewDB(t))

	code := &model.VerificationCode{UserID: 1, Code: "abc", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveCode(ctx, code))

	found, err := s.FindByCode(ctx, "abc")
	require.NoError(t, err)

	deleted, err := s.DeleteCode(ctx, found)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteCode(ctx, found)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.FindByCode(ctx, "abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenStore_ConsumeResetTokenOnce(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(testutil.NewDB(t))

	tok := &model.PasswordResetToken{UserID: 1, Token: "tok", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.SaveResetToken(ctx, tok))

	at := time.Now().UTC()
	ok, err := s.ConsumeResetToken(ctx, tok, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, tok.IsUsed())

	stale := &model.PasswordResetToken{ID: tok.ID}
	ok, err = s.ConsumeResetToken(ctx, stale, at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, stale.IsUsed())
}

func TestTokenStore_RevokeResetTokens(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(testutil.NewDB(t))
	now := time.Now().UTC()

	mine := &model.PasswordResetToken{UserID: 1, Token: "a", CreatedAt: now}
	other := &model.PasswordResetToken{UserID: 2, Token: "b", CreatedAt: now}
	require.NoError(t, s.SaveResetToken(ctx, mine))
	require.NoError(t, s.SaveResetToken(ctx, other))

	require.NoError(t, s.RevokeResetTokens(ctx, 1, now))

	got, err := s.FindByToken(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.IsUsed())

	got, err = s.FindResetTokenByID(ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, got.IsUsed())
}

func TestTokenStore_Purge(t *testing.T) {
	ctx := context.Background()
	s := NewTokenStore(testutil.NewDB(t))
	now := time.Now().UTC()
	used := now.Add(-48 * time.Hour)

	require.NoError(t, s.SaveResetToken(ctx, &model.PasswordResetToken{UserID: 1, Token: "old", CreatedAt: now.Add(-72 * time.Hour)}))
	require.NoError(t, s.SaveResetToken(ctx, &model.PasswordResetToken{UserID: 1, Token: "used", CreatedAt: now.Add(-time.Hour), UsedAt: &used}))
	require.NoError(t, s.SaveResetToken(ctx, &model.PasswordResetToken{UserID: 1, Token: "fresh", CreatedAt: now}))

	n, err := s.PurgeResetTokens(ctx, now.Add(-24*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.FindByToken(ctx, "fresh")
	assert.NoError(t, err)

	require.NoError(t, s.SaveCode(ctx, &model.VerificationCode{UserID: 1, Code: "c", CreatedAt: now.Add(-72 * time.Hour)}))
	n, err = s.PurgeCodes(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestManager_RollbackIncludesJobs(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	m := NewManager(gdb, 3)

	boom := errors.New("boom")
	err := m.InTx(ctx, func(ctx context.Context, r Repositories) error {
		require.NoError(t, r.Users().Save(ctx, &model.User{Email: "gone@example.com"}))
		require.NoError(t, r.Jobs().Dispatch(ctx, jobs.SendWelcomeEmail{UserID: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var users, queued int64
	require.NoError(t, gdb.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, gdb.Model(&model.Job{}).Count(&queued).Error)
	assert.Zero(t, users)
	assert.Zero(t, queued)
}

func TestManager_CommitIncludesJobs(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.NewDB(t)
	m := NewManager(gdb, 3)

	err := m.InTx(ctx, func(ctx context.Context, r Repositories) error {
		u := &model.User{Email: "kept@example.com"}
		if err := r.Users().Save(ctx, u); err != nil {
			return err
		}
		return r.Jobs().Dispatch(ctx, jobs.SendWelcomeEmail{UserID: u.ID})
	})
	require.NoError(t, err)

	var job model.Job
	require.NoError(t, gdb.First(&job).Error)
	assert.Equal(t, jobs.KindWelcomeEmail, job.Kind)
	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, 3, job.MaxAttempts)
	assert.JSONEq(t, `{"userId":1}`, string(job.Payload))
}
