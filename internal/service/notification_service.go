package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Lens_Community/internal/model"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const notifyTimeout = 5 * time.Second

// NotificationService writes notifications in the background; a failed
// insert is logged and dropped.
type NotificationService struct {
	repo *mysql.NotificationRepository
	log  *zap.Logger
	wg   sync.WaitGroup
	now  func() time.Time
}

func NewNotificationService(db *gorm.DB, log *zap.Logger) *NotificationService {
	return &NotificationService{
		repo: &mysql.NotificationRepository{DB: db},
		log:  log,
		now:  time.Now,
	}
}

func (s *NotificationService) Notify(userID uint64, typ model.NotificationType, message string, relatedID *uint64, actionURL string) {
	n := &model.Notification{
		UserID:    userID,
		Type:      typ,
		Message:   message,
		RelatedID: relatedID,
		ActionURL: actionURL,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// 不继承请求的 ctx：请求结束后插入仍需完成
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.repo.Create(ctx, n); err != nil {
			s.log.Warn("create notification",
				zap.Uint64("user_id", userID),
				zap.String("type", string(typ)),
				zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight notifications are written; called on shutdown.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) List(ctx context.Context, userID uint64, unreadOnly bool, page Page) ([]model.Notification, error) {
	list, err := s.repo.List(ctx, userID, unreadOnly, page.Offset(), page.Limit())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	found, err := s.repo.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !found {
		return apierrors.NotFound("notification")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}
