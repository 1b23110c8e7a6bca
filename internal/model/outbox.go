package model

import (
	"time"

	"gorm.io/datatypes"
)

type OutboxKind string

const (
	OutboxCertificate  OutboxKind = "certificate"
	OutboxAchievement  OutboxKind = "achievement"
	OutboxNotification OutboxKind = "notification"
)

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxProcessing OutboxStatus = "processing"
	OutboxDone       OutboxStatus = "done"
	OutboxFailed     OutboxStatus = "failed"
)

// OutboxTask 与主业务在同一事务中写入，提交后由 worker 异步执行并重试
type OutboxTask struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Kind          OutboxKind     `gorm:"size:30;not null;index" json:"kind"`
	DedupKey      string         `gorm:"size:150;not null;uniqueIndex" json:"dedupKey"`
	UserID        uint           `gorm:"not null;index" json:"userId"`
	CourseID      uint           `json:"courseId"`
	Payload       datatypes.JSON `json:"payload,omitempty"`
	Status        OutboxStatus   `gorm:"size:20;not null;index:idx_outbox_due" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	LastError     string         `gorm:"type:text" json:"lastError,omitempty"`
	NextAttemptAt time.Time      `gorm:"not null;index:idx_outbox_due" json:"nextAttemptAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (OutboxTask) TableName() string {
	return "outbox_tasks"
}

// NotificationPayload 通知类任务的载荷
type NotificationPayload struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}
