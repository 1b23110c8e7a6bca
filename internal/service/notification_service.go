package service

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"go.uber.org/zap"
)

type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	Hub              *NotificationHub
}

func NewNotificationService(repo *repository.NotificationRepository, hub *NotificationHub) *NotificationService {
	return &NotificationService{
		NotificationRepo: repo,
		Hub:              hub,
	}
}

// Send 先落库再推送在线连接，推送失败只记日志
func (s *NotificationService) Send(ctx context.Context, userID uint, typ model.NotificationType, title, message string) (*model.Notification, error) {
	n := &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if err := s.NotificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.Hub != nil {
		err := s.Hub.PushToUser(ctx, userID, WSMessage{Type: "NOTIFICATION", Data: n})
		if err != nil {
			logger.Log.Warn("Failed to push notification",
				zap.Error(err),
				zap.Uint("userId", userID),
				zap.Uint("notificationId", n.ID),
			)
		}
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, skip, limit int) (*util.PageResponse, error) {
	list, total, err := s.NotificationRepo.ListByUser(ctx, userID, unreadOnly, skip, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: list, Total: total, Skip: skip, Limit: limit}, nil
}

// MarkAsRead 通知不存在或属于其他用户时返回 NotFound
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uint) error {
	affected, err := s.NotificationRepo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// 已读的通知再次标记时 RowsAffected 可能为 0
	exists, err := s.NotificationRepo.Exists(ctx, id, userID)
	if err != nil {
		return err
	}
	if !exists {
		return util.ErrNotificationNotFound
	}
	return nil
}
