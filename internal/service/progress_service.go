package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	DB           *gorm.DB
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	Completion   *CompletionService
	Dispatcher   Dispatcher
	now          func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	progressRepo *repository.ProgressRepository,
	courseRepo *repository.CourseRepository,
	completion *CompletionService,
	dispatcher Dispatcher,
) *ProgressService {
	return &ProgressService{
		DB:           db,
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		Completion:   completion,
		Dispatcher:   dispatcher,
		now:          time.Now,
	}
}

type CourseProgressItem struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Progress     float64    `json:"progress"`
	LastAccessed time.Time  `json:"lastAccessed"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

type UserProgress struct {
	OverallProgress float64              `json:"overallProgress"`
	Courses         []CourseProgressItem `json:"courses"`
}

// UpdateProgress 存储值取新旧较大者，首次达到 100% 时在同一事务内完成课程
func (s *ProgressService) UpdateProgress(ctx context.Context, userID, courseID uint, percentage float64) (*model.CourseProgress, error) {
	if math.IsNaN(percentage) || percentage < 0 || percentage > 100 {
		return nil, util.ErrInvalidPercentage
	}

	now := s.now()
	var progress *model.CourseProgress
	newlyCompleted := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)

		p, err := repo.FindForUpdate(ctx, userID, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		}
		if err != nil {
			return err
		}

		stored := math.Max(p.ProgressPercentage, percentage)
		if err := repo.UpdateAccess(ctx, p.ID, stored, now); err != nil {
			return err
		}
		p.ProgressPercentage = stored
		p.LastAccessed = now

		if stored >= 100 && !p.Completed {
			// 并发请求中只有一个能完成状态迁移
			ok, err := repo.MarkCompleted(ctx, p.ID, now)
			if err != nil {
				return err
			}
			if ok {
				if err := s.Completion.CompleteCourse(ctx, tx, userID, courseID, now); err != nil {
					return err
				}
				completedAt := now
				p.Completed = true
				p.CompletedAt = &completedAt
				newlyCompleted = true
			}
		}

		progress = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	if newlyCompleted {
		monitoring.CompletionCounter.Inc()
		logger.Log.Info("Course completed", zap.Uint("userId", userID), zap.Uint("courseId", courseID))
		if s.Dispatcher != nil {
			s.Dispatcher.Notify()
		}
	}
	return progress, nil
}

// AggregateProgress 所有课程进度的平均值，保留两位小数，无记录时为 0
func (s *ProgressService) AggregateProgress(ctx context.Context, userID uint) (float64, error) {
	avg, err := s.ProgressRepo.AverageByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return math.Round(avg*100) / 100, nil
}

// GetUserProgress 只能查看自己的进度，管理员除外
func (s *ProgressService) GetUserProgress(ctx context.Context, principal util.Principal, userID uint) (*UserProgress, error) {
	if principal.ID != userID && principal.Role != model.Admin {
		return nil, util.ErrProgressForbidden
	}

	records, err := s.ProgressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	overall, err := s.AggregateProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	items := make([]CourseProgressItem, 0, len(records))
	for _, p := range records {
		item := CourseProgressItem{
			ID:           p.CourseID,
			Progress:     p.ProgressPercentage,
			LastAccessed: p.LastAccessed,
			Completed:    p.Completed,
			CompletedAt:  p.CompletedAt,
		}
		if course, err := s.CourseRepo.FindByID(ctx, p.CourseID); err == nil {
			item.Title = course.Title
		}
		items = append(items, item)
	}

	return &UserProgress{
		OverallProgress: overall,
		Courses:         items,
	}, nil
}
