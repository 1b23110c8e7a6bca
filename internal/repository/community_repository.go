package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type TopicRepository struct {
	DB *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

func (r *TopicRepository) WithTx(tx *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: tx}
}

func (r *TopicRepository) FindWithPagination(ctx context.Context, category string, skip, limit int) ([]model.ForumTopic, int64, error) {
	var topics []model.ForumTopic
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.ForumTopic{})
	if category != "" {
		query = query.Where("category = ?", category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Order("id DESC").
		Offset(skip).Limit(limit).
		Preload("Author", selectAuthor).
		Find(&topics).Error
	if err != nil {
		return nil, 0, err
	}
	return topics, total, nil
}

func (r *TopicRepository) Create(ctx context.Context, topic *model.ForumTopic) error {
	return r.DB.WithContext(ctx).Create(topic).Error
}

func (r *TopicRepository) FindByID(ctx context.Context, id uint) (*model.ForumTopic, error) {
	var topic model.ForumTopic
	err := r.DB.WithContext(ctx).First(&topic, id).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

// FindDetail 包含作者和按时间排序的回复
func (r *TopicRepository) FindDetail(ctx context.Context, id uint) (*model.ForumTopic, error) {
	var topic model.ForumTopic
	err := r.DB.WithContext(ctx).
		Preload("Author", selectAuthor).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).
		Preload("Replies.Author", selectAuthor).
		First(&topic, id).Error
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) CreateReply(ctx context.Context, reply *model.TopicReply) error {
	return r.DB.WithContext(ctx).Create(reply).Error
}

func (r *TopicRepository) IncrementReplyCount(ctx context.Context, topicID uint) error {
	return r.DB.WithContext(ctx).Model(&model.ForumTopic{}).
		Where("id = ?", topicID).
		UpdateColumn("reply_count", gorm.Expr("reply_count + 1")).
		Error
}

func selectAuthor(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "avatar", "role")
}
