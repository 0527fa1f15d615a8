package store

import (
	"bitwise74/account-api/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, wrapErr(err)
	}

	return &u, nil
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, wrapErr(err)
	}

	return &u, nil
}

// GetReference selects the row FOR UPDATE. The sqlite dialect drops the
// locking clause, sqlite serializes writers anyway.
func (s *UserStore) GetReference(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&u, id).
		Error
	if err != nil {
		return nil, wrapErr(err)
	}

	return &u, nil
}

// Save inserts u when it has no ID yet and updates every column otherwise.
func (s *UserStore) Save(ctx context.Context, u *model.User) error {
	return wrapErr(s.db.WithContext(ctx).Save(u).Error)
}
