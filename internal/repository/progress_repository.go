package repository

import (
	"context"
	"learnhub_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) Create(ctx context.Context, progress *model.CourseProgress) error {
	return r.DB.WithContext(ctx).Create(progress).Error
}

func (r *ProgressRepository) FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*model.CourseProgress, error) {
	var progress model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// FindForUpdate 在事务中对进度行加行锁（SQLite 下忽略，依赖库级写锁）
func (r *ProgressRepository) FindForUpdate(ctx context.Context, userID, courseID uint) (*model.CourseProgress, error) {
	var progress model.CourseProgress
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) UpdateAccess(ctx context.Context, id uint, percentage float64, accessedAt time.Time) error {
	return r.DB.WithContext(ctx).Model(&model.CourseProgress{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"progress_percentage": percentage,
			"last_accessed":       accessedAt,
		}).Error
}

// MarkCompleted 仅当 completed = false 时更新，返回是否由本次调用完成状态迁移
func (r *ProgressRepository) MarkCompleted(ctx context.Context, id uint, completedAt time.Time) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.CourseProgress{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.CourseProgress, error) {
	var records []model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Find(&records).Error
	return records, err
}

func (r *ProgressRepository) AverageByUser(ctx context.Context, userID uint) (float64, error) {
	var avg float64
	err := r.DB.WithContext(ctx).Model(&model.CourseProgress{}).
		Where("user_id = ?", userID).
		Select("COALESCE(AVG(progress_percentage), 0)").
		Scan(&avg).Error
	return avg, err
}

// FindPercentages 返回用户在指定课程上的进度，key 为课程ID
func (r *ProgressRepository) FindPercentages(ctx context.Context, userID uint, courseIDs []uint) (map[uint]float64, error) {
	result := make(map[uint]float64)
	if len(courseIDs) == 0 {
		return result, nil
	}

	var records []model.CourseProgress
	err := r.DB.WithContext(ctx).
		Select("course_id", "progress_percentage").
		Where("user_id = ? AND course_id IN ?", userID, courseIDs).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	for _, p := range records {
		result[p.CourseID] = p.ProgressPercentage
	}
	return result, nil
}
