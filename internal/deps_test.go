package internal

import (
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/model"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/testutil"
	"context"
	"testing"
	"time"

	v "github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeps_LocalBackend(t *testing.T) {
	v.Reset()
	t.Cleanup(v.Reset)

	v.Set("tokens.reset_ttl", "24h")
	v.Set("jobs.backend", "local")
	v.Set("jobs.max_attempts", 3)
	v.Set("host.domain", "example.com")

	d := NewDeps(testutil.NewDB(t))

	assert.Equal(t, []string{jobs.KindResetPasswordEmail, jobs.KindWelcomeEmail}, d.Registry.Kinds())
	assert.Nil(t, d.asynqClient)
	require.NotNil(t, d.JobQueue)

	// the welcome job of a fresh registration is delivered through the
	// log sender and settles as done
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := d.Accounts.Register(ctx, service.CreateUserRequest{Email: "ann@example.com", Password: "Tr0ub4dor&3-horse"})
	require.NoError(t, err)

	n, err := d.JobQueue.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var job model.Job
	require.NoError(t, d.DB.First(&job).Error)
	assert.Equal(t, model.JobDone, job.Status)
}
