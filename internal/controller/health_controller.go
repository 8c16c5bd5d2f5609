package controller

import (
	"context"
	"time"

	"proctorx_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// Health godoc
// @Summary 健康检查
// @Tags 系统
// @Produce  json
// @Success 200 {object} util.Response{data=object}
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "up"
	if sqlDB, err := c.DB.DB(); err != nil || sqlDB.PingContext(checkCtx) != nil {
		dbStatus = "down"
	}

	redisStatus := "up"
	if err := c.Redis.Ping(checkCtx).Err(); err != nil {
		redisStatus = "down"
	}

	status := map[string]string{
		"database": dbStatus,
		"redis":    redisStatus,
	}

	if dbStatus == "down" || redisStatus == "down" {
		util.Fail(ctx, 503, "degraded")
		return
	}

	util.Success(ctx, status)
}
