package mysql

import (
	"context"
	"time"

	"Lens_Community/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

// FindValid returns the session only while expires_at is strictly after now.
// Expired rows are left in place; nothing sweeps them.
func (r *SessionRepository) FindValid(ctx context.Context, token string, now time.Time) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now).
		First(&s).Error
	return &s, err
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID uint64) error {
	return r.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{}).Error
}
