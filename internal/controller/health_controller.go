package controller

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type OutboxCounter interface {
	CountByStatus(ctx context.Context, status model.OutboxStatus) (int64, error)
}

type HealthController struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Outbox OutboxCounter
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, outbox OutboxCounter) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Outbox: outbox}
}

// @Summary 健康检查
// @Description 数据库不可用时返回 503；Redis 未启用时标记为 disabled
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := c.DB.DB()
	if err != nil || sqlDB.PingContext(reqCtx) != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up", "redis": "disabled"}
	if c.Redis != nil {
		components["redis"] = "up"
		if err := c.Redis.Ping(reqCtx).Err(); err != nil {
			components["redis"] = "down"
		}
	}

	// 失败的异步任务不影响可用性，只用于告警
	if c.Outbox != nil {
		pending, _ := c.Outbox.CountByStatus(reqCtx, model.OutboxPending)
		failed, _ := c.Outbox.CountByStatus(reqCtx, model.OutboxFailed)
		components["outbox"] = gin.H{"pending": pending, "failed": failed}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
