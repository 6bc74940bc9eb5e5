package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	LikeCntTTL       = 24 * time.Hour
	LockTTL          = 300 * time.Millisecond
	LikeCntKeyPrefix = "like:cnt:photo"  // 缓存某张照片的点赞计数
	LockKeyPrefix    = "lock:like:photo" // 分布式锁
)

type LikeCacheRepository struct {
	RDB        *redis.Client
	likeCntTTL time.Duration
}

type DistLock struct {
	RDB *redis.Client
}

func NewLikeCacheRepository(rdb *redis.Client) *LikeCacheRepository {
	return &LikeCacheRepository{
		RDB:        rdb,
		likeCntTTL: LikeCntTTL,
	}
}

func (r *LikeCacheRepository) likeCntKey(photoID uint64) string {
	return fmt.Sprintf("%s:%d", LikeCntKeyPrefix, photoID)
}

// GetLikeCountCached 从缓存读取照片的点赞数量；ok 为 false 表示未命中
func (r *LikeCacheRepository) GetLikeCountCached(ctx context.Context, photoID uint64) (int64, bool, error) {
	val, err := r.RDB.Get(ctx, r.likeCntKey(photoID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}

// SetLikeCount 回填照片点赞数
func (r *LikeCacheRepository) SetLikeCount(ctx context.Context, photoID uint64, cnt int64) error {
	return r.RDB.Set(ctx, r.likeCntKey(photoID), cnt, r.likeCntTTL).Err()
}

// DeleteCount 删除计数缓存，delay>0 时在后台再删一次，缩小并发回填窗口
func (r *LikeCacheRepository) DeleteCount(ctx context.Context, photoID uint64, delay ...time.Duration) error {
	key := r.likeCntKey(photoID)
	if err := r.RDB.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if len(delay) > 0 && delay[0] > 0 {
		d := delay[0]
		go func() {
			t := time.NewTimer(d)
			defer t.Stop()
			<-t.C
			_ = r.RDB.Del(context.Background(), key).Err()
		}()
	}
	return nil
}

// Acquire 请求加分布式锁
func (l *DistLock) Acquire(ctx context.Context, photoID uint64, token string) (bool, error) {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, photoID)
	return l.RDB.SetNX(ctx, key, token, LockTTL).Result()
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// Release 用lua保证只释放自己的锁
func (l *DistLock) Release(ctx context.Context, photoID uint64, token string) error {
	key := fmt.Sprintf("%s:%d", LockKeyPrefix, photoID)
	return releaseScript.Run(ctx, l.RDB, []string{key}, token).Err()
}
