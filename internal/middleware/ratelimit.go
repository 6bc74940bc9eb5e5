package middleware

import (
	"strconv"
	"time"

	apierrors "Lens_Community/internal/pkg/errors"
	rcache "Lens_Community/internal/repository/redis"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// KeyFunc picks the rate-limit subject of a request; "" skips limiting.
type KeyFunc func(c *gin.Context) string

func ByUser(c *gin.Context) string {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint64); ok {
			return strconv.FormatUint(id, 10)
		}
	}
	return ""
}

func ByIP(c *gin.Context) string {
	return c.ClientIP()
}

// RateLimit 固定窗口限流；redis 不可用时放行，只记日志
func RateLimit(repo *rcache.RateLimitRepository, scope string, limit int, window time.Duration, key KeyFunc, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if repo == nil || limit <= 0 {
			c.Next()
			return
		}
		subject := key(c)
		if subject == "" {
			c.Next()
			return
		}
		ok, count, err := repo.Allow(c.Request.Context(), scope, subject, limit, window)
		if err != nil {
			log.Warn("rate limit check", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			log.Info("rate limited", zap.String("scope", scope), zap.String("subject", subject), zap.Int64("count", count))
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			abortWith(c, apierrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
