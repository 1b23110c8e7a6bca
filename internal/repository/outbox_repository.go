package repository

import (
	"context"
	"learnhub_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

func (r *OutboxRepository) WithTx(tx *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: tx}
}

// Enqueue 相同 DedupKey 的任务只保留一条，返回是否新写入
func (r *OutboxRepository) Enqueue(ctx context.Context, task *model.OutboxTask) (bool, error) {
	if task.Status == "" {
		task.Status = model.OutboxPending
	}
	if task.NextAttemptAt.IsZero() {
		task.NextAttemptAt = time.Now()
	}
	result := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(task)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *OutboxRepository) FetchDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxTask, error) {
	var tasks []model.OutboxTask
	err := r.DB.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", model.OutboxPending, now).
		Order("next_attempt_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// Claim pending -> processing，多个 worker 竞争时只有一个成功
func (r *OutboxRepository) Claim(ctx context.Context, id uint) (bool, error) {
	result := r.DB.WithContext(ctx).Model(&model.OutboxTask{}).
		Where("id = ? AND status = ?", id, model.OutboxPending).
		Updates(map[string]interface{}{
			"status":     model.OutboxProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *OutboxRepository) MarkDone(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Model(&model.OutboxTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxDone,
			"last_error": "",
		}).Error
}

func (r *OutboxRepository) Reschedule(ctx context.Context, id uint, next time.Time, lastErr string) error {
	return r.DB.WithContext(ctx).Model(&model.OutboxTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          model.OutboxPending,
			"next_attempt_at": next,
			"last_error":      lastErr,
		}).Error
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint, lastErr string) error {
	return r.DB.WithContext(ctx).Model(&model.OutboxTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxFailed,
			"last_error": lastErr,
		}).Error
}

// ResetStale 进程崩溃后遗留的 processing 任务重新放回队列
func (r *OutboxRepository) ResetStale(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.DB.WithContext(ctx).Model(&model.OutboxTask{}).
		Where("status = ? AND updated_at < ?", model.OutboxProcessing, olderThan).
		Updates(map[string]interface{}{
			"status":          model.OutboxPending,
			"next_attempt_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *OutboxRepository) FindByID(ctx context.Context, id uint) (*model.OutboxTask, error) {
	var task model.OutboxTask
	err := r.DB.WithContext(ctx).First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *OutboxRepository) FindByDedupKey(ctx context.Context, key string) (*model.OutboxTask, error) {
	var task model.OutboxTask
	err := r.DB.WithContext(ctx).Where("dedup_key = ?", key).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *OutboxRepository) CountByStatus(ctx context.Context, status model.OutboxStatus) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.OutboxTask{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
