package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompletionRepository struct {
	DB *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: db}
}

func (r *CompletionRepository) WithTx(tx *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: tx}
}

// CreateOnce 已存在时不做任何事，返回是否新写入
func (r *CompletionRepository) CreateOnce(ctx context.Context, completion *model.CourseCompletion) (bool, error) {
	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(completion)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *CompletionRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CourseCompletion{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *CompletionRepository) FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*model.CourseCompletion, error) {
	var completion model.CourseCompletion
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}
