package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"gorm.io/gorm"
)

type CommunityService struct {
	DB         *gorm.DB
	TopicRepo  *repository.TopicRepository
	OutboxRepo *repository.OutboxRepository
	Dispatcher Dispatcher
}

func NewCommunityService(
	db *gorm.DB,
	topicRepo *repository.TopicRepository,
	outboxRepo *repository.OutboxRepository,
	dispatcher Dispatcher,
) *CommunityService {
	return &CommunityService{
		DB:         db,
		TopicRepo:  topicRepo,
		OutboxRepo: outboxRepo,
		Dispatcher: dispatcher,
	}
}

type CreateTopicRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category" binding:"required"`
}

type CreateReplyRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *CommunityService) ListTopics(ctx context.Context, category string, skip, limit int) (*util.PageResponse, error) {
	topics, total, err := s.TopicRepo.FindWithPagination(ctx, category, skip, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: topics, Total: total, Skip: skip, Limit: limit}, nil
}

func (s *CommunityService) CreateTopic(ctx context.Context, authorID uint, req CreateTopicRequest) (*model.ForumTopic, error) {
	topic := &model.ForumTopic{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		AuthorID: authorID,
	}
	if err := s.TopicRepo.Create(ctx, topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *CommunityService) GetTopic(ctx context.Context, id uint) (*model.ForumTopic, error) {
	topic, err := s.TopicRepo.FindDetail(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTopicNotFound
	}
	return topic, err
}

// Reply 回复他人主题时通知主题作者
func (s *CommunityService) Reply(ctx context.Context, authorID, topicID uint, req CreateReplyRequest) (*model.TopicReply, error) {
	var reply *model.TopicReply
	notify := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topics := s.TopicRepo.WithTx(tx)
		topic, err := topics.FindByID(ctx, topicID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrTopicNotFound
		}
		if err != nil {
			return err
		}

		r := &model.TopicReply{
			Content:  req.Content,
			TopicID:  topicID,
			AuthorID: authorID,
		}
		if err := topics.CreateReply(ctx, r); err != nil {
			return err
		}
		if err := topics.IncrementReplyCount(ctx, topicID); err != nil {
			return err
		}

		if topic.AuthorID != authorID {
			notify = true
			if err := enqueueNotification(ctx, s.OutboxRepo.WithTx(tx), topic.AuthorID,
				fmt.Sprintf("notification:forum_reply:%d", r.ID),
				model.NotificationPayload{
					Type:    model.NotificationForumReply,
					Title:   "New reply",
					Message: fmt.Sprintf("Someone replied to your topic %q.", topic.Title),
				}); err != nil {
				return err
			}
		}

		reply = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if notify && s.Dispatcher != nil {
		s.Dispatcher.Notify()
	}
	return reply, nil
}
