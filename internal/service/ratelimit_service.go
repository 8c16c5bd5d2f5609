package service

import (
	"context"
	"fmt"
	"time"

	"proctorx_backend/internal/util"
	"proctorx_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RateLimitService Redis固定窗口限流，按身份维度计数，多实例共享配额
type RateLimitService struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewRateLimitService(rdb *redis.Client, maxRequests, windowSecs int) *RateLimitService {
	if maxRequests <= 0 {
		maxRequests = 30
	}
	if windowSecs <= 0 {
		windowSecs = 60
	}
	return &RateLimitService{
		rdb:    rdb,
		max:    maxRequests,
		window: time.Duration(windowSecs) * time.Second,
	}
}

// Allow increments the identity's counter for the current window and reports
// whether it is still under the cap. Redis being down fails open: dropping
// live violation reports is worse than letting a burst through.
func (s *RateLimitService) Allow(ctx context.Context, identity string) bool {
	key := fmt.Sprintf("ratelimit:%s:%d", identity, time.Now().Unix()/int64(s.window.Seconds()))

	pipe := s.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("rate limit check failed, allowing request", zap.Error(err))
		return true
	}

	return incr.Val() <= int64(s.max)
}

// Middleware 针对高频公共接口的身份级限流；已登录按用户，匿名按IP
func (s *RateLimitService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.ClientIP()
		if claims := util.GetUserFromContext(c); claims != nil {
			identity = fmt.Sprintf("user:%d", claims.UserID)
		}

		if !s.Allow(c.Request.Context(), identity) {
			util.HandleError(c, util.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
