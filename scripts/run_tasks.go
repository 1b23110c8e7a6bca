// 手动触发后台任务脚本
//
// 活动提醒和 outbox 任务已由主应用的定时任务处理。
// 此脚本仅用于手动补跑，例如服务长时间停机后积压了大量任务。
//
// 用法: go run scripts/run_tasks.go

package main

import (
	"context"
	"learnhub_backend/internal/app"
	"learnhub_backend/internal/config"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"log"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	// 脚本不连接 Redis，通知只落库不推送
	application, err := app.Build(cfg, db, nil)
	if err != nil {
		log.Fatalf("初始化失败: %v", err)
	}

	log.Println("手动触发后台任务...")
	reminders, processed, err := application.RunPendingTasks(context.Background())
	if err != nil {
		log.Fatalf("执行失败: %v", err)
	}
	log.Printf("完成！提醒 %d 条，处理任务 %d 个", reminders, processed)
}
