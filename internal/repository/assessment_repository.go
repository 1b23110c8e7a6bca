package repository

import (
	"context"
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type AssessmentRepository struct {
	DB *gorm.DB
}

func NewAssessmentRepository(db *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: db}
}

func (r *AssessmentRepository) WithTx(tx *gorm.DB) *AssessmentRepository {
	return &AssessmentRepository{DB: tx}
}

func (r *AssessmentRepository) Create(ctx context.Context, assessment *model.Assessment) error {
	return r.DB.WithContext(ctx).Create(assessment).Error
}

func (r *AssessmentRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Assessment, error) {
	var assessment model.Assessment
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		First(&assessment, id).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *AssessmentRepository) CreateAttempt(ctx context.Context, attempt *model.AssessmentAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *AssessmentRepository) ListAttempts(ctx context.Context, userID, assessmentID uint) ([]model.AssessmentAttempt, error) {
	var attempts []model.AssessmentAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND assessment_id = ?", userID, assessmentID).
		Order("submitted_at DESC").
		Order("id DESC").
		Find(&attempts).Error
	return attempts, err
}
