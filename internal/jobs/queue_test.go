package jobs

import (
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/testutil"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type execFunc func(ctx context.Context, job *model.Job) error

func (f execFunc) Execute(ctx context.Context, job *model.Job) error { return f(ctx, job) }

func newTestQueue(t *testing.T, exec Executor) (*Queue, *gorm.DB) {
	t.Helper()

	gdb := testutil.NewDB(t)
	q := NewQueue(gdb, exec, QueueOpts{
		Workers:      1,
		BatchSize:    10,
		PollInterval: 10 * time.Millisecond,
		Lease:        time.Minute,
		Backoff:      func(int) time.Duration { return time.Hour },
	})

	return q, gdb
}

func loadJob(t *testing.T, gdb *gorm.DB) model.Job {
	t.Helper()

	var job model.Job
	require.NoError(t, gdb.First(&job).Error)
	return job
}

func TestQueue_RunOnceCompletes(t *testing.T) {
	var seen []byte
	q, gdb := newTestQueue(t, execFunc(func(_ context.Context, job *model.Job) error {
		seen = job.Payload
		return nil
	}))

	require.NoError(t, NewOutboxDispatcher(gdb, 3).Dispatch(context.Background(), SendWelcomeEmail{UserID: 5}))

	n, err := q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.JSONEq(t, `{"userId":5}`, string(seen))

	job := loadJob(t, gdb)
	assert.Equal(t, model.JobDone, job.Status)
	assert.Equal(t, 1, job.Attempts)
	assert.Nil(t, job.LockedUntil)

	n, err = q.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "done jobs are not redelivered")
}

func TestQueue_RetryThenDead(t *testing.T) {
	q, gdb := newTestQueue(t, execFunc(func(context.Context, *model.Job) error {
		return errors.New("smtp down")
	}))
	ctx := context.Background()

	require.NoError(t, NewOutboxDispatcher(gdb, 2).Dispatch(ctx, SendWelcomeEmail{UserID: 1}))

	_, err := q.RunOnce(ctx)
	require.NoError(t, err)

	job := loadJob(t, gdb)
	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, "smtp down", job.LastError)
	assert.True(t, job.RunAt.After(time.Now()), "retry is pushed back by the backoff")

	n, err := q.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "job is not due yet")

	q.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = q.RunOnce(ctx)
	require.NoError(t, err)

	job = loadJob(t, gdb)
	assert.Equal(t, model.JobDead, job.Status)
	assert.Equal(t, 2, job.Attempts)
}

func TestQueue_LongErrorKeepsValidUTF8(t *testing.T) {
	// 'é' is two bytes, so an odd offset lands mid-rune at the cut
	long := "x" + strings.Repeat("é", maxErrorLength)
	q, gdb := newTestQueue(t, execFunc(func(context.Context, *model.Job) error {
		return errors.New(long)
	}))
	ctx := context.Background()

	require.NoError(t, NewOutboxDispatcher(gdb, 3).Dispatch(ctx, SendWelcomeEmail{UserID: 1}))

	_, err := q.RunOnce(ctx)
	require.NoError(t, err)

	job := loadJob(t, gdb)
	assert.Equal(t, model.JobPending, job.Status)
	assert.True(t, utf8.ValidString(job.LastError))
	assert.LessOrEqual(t, len(job.LastError), maxErrorLength)
	assert.True(t, strings.HasPrefix(long, job.LastError))
}

func TestQueue_PermanentFailureIsDeadImmediately(t *testing.T) {
	q, gdb := newTestQueue(t, execFunc(func(context.Context, *model.Job) error {
		return Permanent(errors.New("user gone"))
	}))
	ctx := context.Background()

	require.NoError(t, NewOutboxDispatcher(gdb, 5).Dispatch(ctx, SendWelcomeEmail{UserID: 1}))

	_, err := q.RunOnce(ctx)
	require.NoError(t, err)

	job := loadJob(t, gdb)
	assert.Equal(t, model.JobDead, job.Status)
	assert.Equal(t, 1, job.Attempts)
}

func TestQueue_ClaimIsExclusive(t *testing.T) {
	q, gdb := newTestQueue(t, execFunc(func(context.Context, *model.Job) error { return nil }))
	ctx := context.Background()

	require.NoError(t, NewOutboxDispatcher(gdb, 3).Dispatch(ctx, SendWelcomeEmail{UserID: 1}))

	first, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, second, "leased job is invisible")

	// once the lease runs out the job is redelivered and the stale claim
	// can no longer settle it
	q.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	third, err := q.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, 2, third[0].Attempts)

	assert.ErrorIs(t, q.complete(first[0]), ErrNotClaimed)
	assert.NoError(t, q.complete(third[0]))
}

func TestQueue_StartProcessesInBackground(t *testing.T) {
	var done atomic.Int32
	q, gdb := newTestQueue(t, execFunc(func(context.Context, *model.Job) error {
		done.Add(1)
		return nil
	}))

	d := NewOutboxDispatcher(gdb, 3)
	for i := range 3 {
		require.NoError(t, d.Dispatch(context.Background(), SendWelcomeEmail{UserID: uint(i + 1)}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	assert.Eventually(t, func() bool { return done.Load() == 3 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	q.Wait()
	assert.Zero(t, q.Running())
}

func TestPurgeFinished(t *testing.T) {
	q, gdb := newTestQueue(t, execFunc(func(context.Context, *model.Job) error { return nil }))
	ctx := context.Background()

	require.NoError(t, NewOutboxDispatcher(gdb, 3).Dispatch(ctx, SendWelcomeEmail{UserID: 1}))
	_, err := q.RunOnce(ctx)
	require.NoError(t, err)

	n, err := PurgeFinished(ctx, gdb, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = PurgeFinished(ctx, gdb, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDefaultBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Second, DefaultBackoff(1))
	assert.Equal(t, 10*time.Second, DefaultBackoff(2))
	assert.Equal(t, 40*time.Second, DefaultBackoff(4))
	assert.Equal(t, 10*time.Minute, DefaultBackoff(50))
}
