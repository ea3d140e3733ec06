package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Exists(ctx context.Context, userID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&User{}).
		Where("user_id = ?", userID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *UserRepo) GetByUserID(ctx context.Context, userID string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepo) Create(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// Ensure provisions a row for a subject seen in a validated token. The
// identity provider stays the source of truth; this only mirrors it.
func (r *UserRepo) Ensure(ctx context.Context, userID, username string) (*User, error) {
	u, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := &User{UserID: userID, Username: username}
	if fresh.Username == "" {
		fresh.Username = userID
	}
	if err := r.db.WithContext(ctx).Create(fresh).Error; err != nil {
		// lost a race with a concurrent first request for the same subject
		if existing, getErr := r.GetByUserID(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return fresh, nil
}
