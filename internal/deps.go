package internal

import (
	"bitwise74/account-api/config"
	"bitwise74/account-api/internal/jobs"
	"bitwise74/account-api/internal/mail"
	"bitwise74/account-api/internal/service"
	"bitwise74/account-api/internal/store"
	"bitwise74/account-api/pkg/security"

	"github.com/hibiken/asynq"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Argon    *security.ArgonHash
	Users    *store.UserStore
	Accounts *service.AccountService
	Registry *jobs.Registry
	JobQueue *jobs.Queue
	Cleanup  *service.TokenCleanup

	asynqClient *asynq.Client
}

// NewDeps wires every component from the loaded configuration. With the
// asynq backend the queue forwards outbox rows to Redis instead of running
// the handlers itself.
func NewDeps(db *gorm.DB) *Deps {
	d := &Deps{
		DB:       db,
		Argon:    security.New(),
		Users:    store.NewUserStore(db),
		Registry: jobs.NewRegistry(),
	}

	verificationTTL := v.GetDuration("tokens.verification_ttl")
	resetTTL := v.GetDuration("tokens.reset_ttl")
	maxAttempts := v.GetInt("jobs.max_attempts")

	d.Accounts = service.NewAccountService(store.NewManager(db, maxAttempts), d.Argon, service.AccountOpts{
		VerificationTTL: verificationTTL,
		ResetTTL:        resetTTL,
	})

	mail.NewHandlers(db, newSender(), mail.HandlerOpts{
		BaseURL:         config.BaseURL(),
		VerificationTTL: verificationTTL,
		ResetTTL:        resetTTL,
	}).Register(d.Registry)

	var exec jobs.Executor = d.Registry
	if v.GetString("jobs.backend") == "asynq" {
		d.asynqClient = asynq.NewClient(RedisOpt())
		exec = jobs.NewAsynqForwarder(d.asynqClient, maxAttempts)
	}

	d.JobQueue = jobs.NewQueue(db, exec, jobs.QueueOpts{
		Workers:      v.GetInt("jobs.workers"),
		BatchSize:    v.GetInt("jobs.batch_size"),
		PollInterval: v.GetDuration("jobs.poll_interval"),
		Lease:        v.GetDuration("jobs.lease"),
	})

	d.Cleanup = service.NewTokenCleanup(db, service.CleanupOpts{
		Retention:       v.GetDuration("cleanup.retention"),
		VerificationTTL: verificationTTL,
		ResetTTL:        resetTTL,
	})

	return d
}

func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: v.GetString("jobs.redis_addr")}
}

func newSender() mail.Sender {
	if !v.GetBool("mail.enabled") {
		return mail.LogSender{}
	}

	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     v.GetString("mail.host"),
		Port:     v.GetInt("mail.port"),
		Username: v.GetString("mail.username"),
		Password: v.GetString("mail.password"),
		From:     v.GetString("mail.sender_address"),
	})
}

func (d *Deps) Close() {
	if d.asynqClient != nil {
		if err := d.asynqClient.Close(); err != nil {
			zap.L().Error("Failed to close asynq client", zap.Error(err))
		}
	}

	if sqlDB, err := d.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
