package store

import (
	"bitwise74/account-api/internal/jobs"
	"context"

	"gorm.io/gorm"
)

// Manager is the gorm Transactor. Every repository it hands out, the job
// dispatcher included, shares the same transaction handle.
type Manager struct {
	db          *gorm.DB
	maxAttempts int
}

func NewManager(db *gorm.DB, maxAttempts int) *Manager {
	return &Manager{db: db, maxAttempts: maxAttempts}
}

func (m *Manager) InTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txRepos{
			users:  NewUserStore(tx),
			tokens: NewTokenStore(tx),
			jobs:   jobs.NewOutboxDispatcher(tx, m.maxAttempts),
		})
	})
}

type txRepos struct {
	users  *UserStore
	tokens *TokenStore
	jobs   *jobs.OutboxDispatcher
}

func (r *txRepos) Users() UserRepository  { return r.users }
func (r *txRepos) Tokens() TokenRepository { return r.tokens }
func (r *txRepos) Jobs() jobs.Dispatcher   { return r.jobs }
