package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CompletionService 课程完成后的记录与后续任务登记
type CompletionService struct {
	CourseRepo     *repository.CourseRepository
	CompletionRepo *repository.CompletionRepository
	OutboxRepo     *repository.OutboxRepository
}

func NewCompletionService(
	courseRepo *repository.CourseRepository,
	completionRepo *repository.CompletionRepository,
	outboxRepo *repository.OutboxRepository,
) *CompletionService {
	return &CompletionService{
		CourseRepo:     courseRepo,
		CompletionRepo: completionRepo,
		OutboxRepo:     outboxRepo,
	}
}

// CompleteCourse 必须在 completed false -> true 的同一事务内调用。
// 证书、成就和通知只登记为 outbox 任务，提交后异步执行，失败不影响完成状态。
func (s *CompletionService) CompleteCourse(ctx context.Context, tx *gorm.DB, userID, courseID uint, completedAt time.Time) error {
	created, err := s.CompletionRepo.WithTx(tx).CreateOnce(ctx, &model.CourseCompletion{
		UserID:      userID,
		CourseID:    courseID,
		CompletedAt: completedAt,
	})
	if err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	if !created {
		logger.Log.Warn("Completion already recorded", zap.Uint("userId", userID), zap.Uint("courseId", courseID))
		return nil
	}

	course, err := s.CourseRepo.WithTx(tx).FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrCourseNotFound
	}
	if err != nil {
		return err
	}

	outbox := s.OutboxRepo.WithTx(tx)
	if course.HasCertificate {
		_, err := outbox.Enqueue(ctx, &model.OutboxTask{
			Kind:     model.OutboxCertificate,
			DedupKey: fmt.Sprintf("certificate:%d:%d", userID, courseID),
			UserID:   userID,
			CourseID: courseID,
		})
		if err != nil {
			return err
		}
	}

	_, err = outbox.Enqueue(ctx, &model.OutboxTask{
		Kind:     model.OutboxAchievement,
		DedupKey: fmt.Sprintf("achievement:%d:%d", userID, courseID),
		UserID:   userID,
		CourseID: courseID,
	})
	if err != nil {
		return err
	}

	return enqueueNotification(ctx, outbox, userID,
		fmt.Sprintf("notification:course_completed:%d:%d", userID, courseID),
		model.NotificationPayload{
			Type:    model.NotificationCourseUpdate,
			Title:   "Course completed",
			Message: fmt.Sprintf("Congratulations, you completed %s.", course.Title),
		})
}
