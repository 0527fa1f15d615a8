package service

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/testutil"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCleanup_Run(t *testing.T) {
	gdb := testutil.NewDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := NewTokenCleanup(gdb, CleanupOpts{
		Retention:       24 * time.Hour,
		VerificationTTL: 48 * time.Hour,
		ResetTTL:        24 * time.Hour,
	})
	c.now = func() time.Time { return now }

	usedLongAgo := now.Add(-30 * time.Hour)
	require.NoError(t, gdb.Create(&[]model.PasswordResetToken{
		{UserID: 1, Token: "expired-long-ago", CreatedAt: now.Add(-72 * time.Hour)},
		{UserID: 1, Token: "used-long-ago", CreatedAt: now.Add(-40 * time.Hour), UsedAt: &usedLongAgo},
		{UserID: 1, Token: "fresh", CreatedAt: now.Add(-time.Hour)},
	}).Error)

	require.NoError(t, gdb.Create(&[]model.VerificationCode{
		{UserID: 1, Code: "stale", CreatedAt: now.Add(-100 * time.Hour)},
		{UserID: 2, Code: "live", CreatedAt: now.Add(-time.Hour)},
	}).Error)

	require.NoError(t, gdb.Create(&model.Job{
		ID: "done-job", Kind: jobs.KindWelcomeEmail, Payload: []byte("{}"), Status: model.JobDone, MaxAttempts: 1,
		RunAt: now.Add(-50 * time.Hour), CreatedAt: now.Add(-50 * time.Hour), UpdatedAt: now.Add(-50 * time.Hour),
	}).Error)

	require.NoError(t, c.Run(ctx))

	var tokens []model.PasswordResetToken
	require.NoError(t, gdb.Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, "fresh", tokens[0].Token)

	var codes []model.VerificationCode
	require.NoError(t, gdb.Find(&codes).Error)
	require.Len(t, codes, 1)
	assert.Equal(t, "live", codes[0].Code)

	var queued int64
	require.NoError(t, gdb.Model(&model.Job{}).Count(&queued).Error)
	assert.Zero(t, queued)
}

type countingTask struct {
	runs atomic.Int32
	err  error
}

func (c *countingTask) Name() string { return "counting" }

func (c *countingTask) Run(context.Context) error {
	c.runs.Add(1)
	return c.err
}

func TestScheduler_AddRejectsBadSpec(t *testing.T) {
	s := NewScheduler(context.Background())

	assert.Error(t, s.Add("not a spec", &countingTask{}))
	assert.NoError(t, s.Add("@daily", &countingTask{}))
	assert.NoError(t, s.Add("*/5 * * * *", &countingTask{}))
}

func TestScheduler_WrapRunsTask(t *testing.T) {
	s := NewScheduler(context.Background())
	task := &countingTask{err: errors.New("boom")}

	run := s.wrap(task)
	run()
	run()

	assert.Equal(t, int32(2), task.runs.Load())
}
