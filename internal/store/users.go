package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/xelth-com/protocolos/internal/models"
)

// UserStore persists user accounts.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.UserAuth, error) {
	var u models.UserAuth
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.UserAuth, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var u models.UserAuth
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context) ([]models.UserAuth, error) {
	var users []models.UserAuth
	err := s.db.WithContext(ctx).Order("username").Find(&users).Error
	return users, err
}

func (s *UserStore) Create(ctx context.Context, u *models.UserAuth) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *UserStore) Save(ctx context.Context, u *models.UserAuth) error {
	return s.db.WithContext(ctx).Save(u).Error
}

// Count returns the number of accounts, used to bootstrap the first admin.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UserAuth{}).Count(&n).Error
	return n, err
}

// RecordLogin resets the failure counter and stamps the login time.
func (s *UserStore) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.UserAuth{}).Where("id = ?", id).
		Updates(map[string]interface{}{"last_login": at, "failed_login_attempts": 0}).Error
}

// RecordFailedLogin increments the failure counter.
func (s *UserStore) RecordFailedLogin(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&models.UserAuth{}).Where("id = ?", id).
		UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error
}
