package service

import (
	"context"
	"fmt"
	"time"

	"Lens_Community/internal/model"
	"Lens_Community/internal/pkg"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/repository/mysql"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type FollowService struct {
	repo     *mysql.FollowRepository
	users    *mysql.UserRepository
	notifier Notifier
}

// CounterReconciler 用户计数对账
type CounterReconciler struct {
	repo      *mysql.UserRepository
	batchSize int
	log       *zap.Logger
}

type Sender func(ctx context.Context, ob *model.ActivityOutbox) error

// OutboxRelayer outbox表相关服务
type OutboxRelayer struct {
	repo      *mysql.OutboxRepository
	batchSize int
	interval  time.Duration
	sender    Sender
	log       *zap.Logger
}

func NewFollowService(db *gorm.DB, notifier Notifier) *FollowService {
	return &FollowService{
		repo:     &mysql.FollowRepository{DB: db},
		users:    &mysql.UserRepository{DB: db},
		notifier: notifier,
	}
}

func NewOutboxRelayer(db *gorm.DB, sender Sender, batchSize int, interval time.Duration, log *zap.Logger) *OutboxRelayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      &mysql.OutboxRepository{DB: db},
		batchSize: batchSize,
		interval:  interval,
		sender:    sender,
		log:       log,
	}
}

func NewCounterReconciler(db *gorm.DB, batchSize int, log *zap.Logger) *CounterReconciler {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &CounterReconciler{
		repo:      &mysql.UserRepository{DB: db},
		batchSize: batchSize,
		log:       log,
	}
}

// Toggle 关注/取消关注，新关注通知对方
func (s *FollowService) Toggle(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == followeeID {
		return false, apierrors.Validation("cannot follow yourself")
	}
	actor, err := s.users.FindByID(ctx, followerID)
	if err != nil {
		return false, notFoundOr(err, "user")
	}
	if _, err := s.users.FindByID(ctx, followeeID); err != nil {
		return false, notFoundOr(err, "user")
	}
	following, err := s.repo.Toggle(ctx, followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	if following {
		s.notifier.Notify(followeeID, model.NotifyFollow,
			fmt.Sprintf("%s started following you", actor.Username),
			ptr(followerID), fmt.Sprintf("/users/%d", followerID))
	}
	return following, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followeeID uint64) (bool, error) {
	if followerID == 0 || followeeID == 0 {
		return false, nil
	}
	return s.repo.IsFollowing(ctx, followerID, followeeID)
}

func (s *FollowService) ListFollowings(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return s.repo.ListFollowings(ctx, userID, cursor, limit)
}

func (s *FollowService) ListFollowers(ctx context.Context, userID uint64, cursor uint64, limit int) ([]model.Follow, uint64, error) {
	return s.repo.ListFollowers(ctx, userID, cursor, limit)
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 从数据库读取待发送事件交给 sender；失败的记录标记为失败并累计重试次数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.List(ctx, r.batchSize)
	if err != nil {
		r.log.Error("outbox query", zap.Error(err))
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err := r.sender(ctx, &ob); err != nil {
			r.log.Warn("outbox send", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			if err := r.repo.RetryUpdate(ctx, ob.ID); err != nil {
				r.log.Error("outbox mark failed", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			}
			continue
		}
		if err := r.repo.SuccessUpdate(ctx, ob.ID); err != nil {
			r.log.Error("outbox mark sent", zap.Uint64("outbox_id", ob.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// LogSender is used when kafka is disabled.
func LogSender(log *zap.Logger) Sender {
	return func(ctx context.Context, ob *model.ActivityOutbox) error {
		log.Info("outbox event",
			zap.String("type", ob.EventType),
			zap.Uint64("actor", ob.ActorID),
			zap.Uint64("target", ob.TargetID),
			zap.String("payload", ob.Payload))
		return nil
	}
}

// KafkaSender 以 actor id 为 key 投递到 kafka
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.ActivityOutbox) error {
		return p.Publish(ctx, pkg.MakeKeyFromID(ob.ActorID), ob.EventType, []byte(ob.Payload))
	}
}

// Schedule registers the reconciler on c using a cron spec such as "@every 5m".
func (r *CounterReconciler) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() { r.ReconcileOnce(ctx) })
}

// ReconcileOnce 分批遍历用户，用明细表的真实值修正计数
func (r *CounterReconciler) ReconcileOnce(ctx context.Context) int {
	var lastID uint64
	fixed := 0
	for {
		ids, err := r.repo.IDsAfter(ctx, lastID, r.batchSize)
		if err != nil {
			r.log.Error("reconcile list", zap.Error(err))
			return fixed
		}
		if len(ids) == 0 {
			return fixed
		}
		for _, id := range ids {
			c, err := r.repo.RealCounters(ctx, id)
			if err != nil {
				r.log.Warn("reconcile count", zap.Uint64("user_id", id), zap.Error(err))
				continue
			}
			if err := r.repo.SaveCounters(ctx, id, c); err != nil {
				r.log.Warn("reconcile save", zap.Uint64("user_id", id), zap.Error(err))
				continue
			}
			fixed++
		}
		lastID = ids[len(ids)-1]
	}
}
