package jobs

import (
	"bitwise74/account-api/internal/model"
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Run(t *testing.T) {
	reg := NewRegistry()

	var got SendResetPasswordEmail
	reg.Handle(KindResetPasswordEmail, func(_ context.Context, raw []byte) error {
		p, err := Decode[SendResetPasswordEmail](raw)
		got = p
		return err
	})

	err := reg.Execute(context.Background(), &model.Job{Kind: KindResetPasswordEmail, Payload: []byte(`{"resetTokenId":12}`)})
	require.NoError(t, err)
	assert.Equal(t, uint(12), got.ResetTokenID)

	err = reg.Run(context.Background(), "unknown", nil)
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.ErrorIs(t, err, ErrPermanent)

	assert.Equal(t, []string{KindResetPasswordEmail}, reg.Kinds())
}

func TestDecode_MalformedIsPermanent(t *testing.T) {
	_, err := Decode[SendWelcomeEmail]([]byte("{"))
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestPayloadKinds(t *testing.T) {
	assert.Equal(t, "email:welcome", SendWelcomeEmail{}.Kind())
	assert.Equal(t, "email:reset_password", SendResetPasswordEmail{}.Kind())
}

func TestServeMux_RoutesAndSkipsRetry(t *testing.T) {
	reg := NewRegistry()

	var calls int
	reg.Handle(KindWelcomeEmail, func(_ context.Context, raw []byte) error {
		calls++
		_, err := Decode[SendWelcomeEmail](raw)
		return err
	})

	mux := NewServeMux(reg)

	err := mux.ProcessTask(context.Background(), asynq.NewTask(KindWelcomeEmail, []byte(`{"userId":1}`)))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	err = mux.ProcessTask(context.Background(), asynq.NewTask(KindWelcomeEmail, []byte(`not json`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewTask(t *testing.T) {
	task := NewTask(&model.Job{Kind: KindWelcomeEmail, Payload: []byte(`{"userId":3}`)})

	assert.Equal(t, KindWelcomeEmail, task.Type())
	assert.JSONEq(t, `{"userId":3}`, string(task.Payload()))
}

func TestRetriesFor(t *testing.T) {
	assert.Equal(t, 4, retriesFor(5))
	assert.Equal(t, 0, retriesFor(1))
	assert.Equal(t, 0, retriesFor(0))

	f := NewAsynqForwarder(nil, 3)
	assert.Equal(t, 2, f.maxRetry)
}
