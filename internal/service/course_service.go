package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	now            func() time.Time
}

func NewCourseService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
) *CourseService {
	return &CourseService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		now:            time.Now,
	}
}

type CourseFilterRequest struct {
	Categories []string `json:"categories"`
	Level      string   `json:"level"`
}

type CreateLessonRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	Type     string `json:"type"`
	Duration int    `json:"duration"`
	Order    int    `json:"order"`
}

type CreateModuleRequest struct {
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	Order       int                   `json:"order"`
	Lessons     []CreateLessonRequest `json:"lessons"`
}

type CreateCourseRequest struct {
	Title          string                `json:"title" binding:"required"`
	Description    string                `json:"description"`
	Category       string                `json:"category" binding:"required"`
	Level          string                `json:"level" binding:"required"`
	Duration       int                   `json:"duration"`
	ImageURL       string                `json:"imageUrl"`
	IsPremium      bool                  `json:"isPremium"`
	HasCertificate bool                  `json:"hasCertificate"`
	Modules        []CreateModuleRequest `json:"modules"`
}

// Enroll 检查顺序：已报名、课程不存在、需要会员。报名、初始进度和报名计数在同一事务内
func (s *CourseService) Enroll(ctx context.Context, principal util.Principal, courseID uint) (*model.Enrollment, error) {
	var enrollment *model.Enrollment

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := s.EnrollmentRepo.WithTx(tx)
		courses := s.CourseRepo.WithTx(tx)

		exists, err := enrollments.Exists(ctx, principal.ID, courseID)
		if err != nil {
			return err
		}
		if exists {
			return util.ErrAlreadyEnrolled
		}

		course, err := courses.FindByID(ctx, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		if err != nil {
			return err
		}
		if course.IsPremium && !principal.IsPremium {
			return util.ErrPremiumRequired
		}

		now := s.now()
		e := &model.Enrollment{
			UserID:     principal.ID,
			CourseID:   courseID,
			EnrolledAt: now,
		}
		// 并发报名由唯一索引兜底
		if err := enrollments.Create(ctx, e); err != nil {
			return err
		}
		if err := s.ProgressRepo.WithTx(tx).Create(ctx, &model.CourseProgress{
			UserID:       principal.ID,
			CourseID:     courseID,
			LastAccessed: now,
		}); err != nil {
			return err
		}
		if err := courses.IncrementEnrolled(ctx, courseID); err != nil {
			return err
		}

		enrollment = e
		return nil
	})

	monitoring.EnrollmentCounter.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	logger.Log.Info("User enrolled", zap.Uint("userId", principal.ID), zap.Uint("courseId", courseID))
	return enrollment, nil
}

func (s *CourseService) ListCourses(ctx context.Context, userID uint, q repository.CourseQuery) (*util.PageResponse, error) {
	courses, total, err := s.CourseRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := s.attachProgress(ctx, userID, courses); err != nil {
		return nil, err
	}
	return &util.PageResponse{List: courses, Total: total, Skip: q.Skip, Limit: q.Limit}, nil
}

func (s *CourseService) FilterCourses(ctx context.Context, userID uint, req CourseFilterRequest) ([]model.Course, error) {
	courses, err := s.CourseRepo.Filter(ctx, req.Categories, req.Level)
	if err != nil {
		return nil, err
	}
	if err := s.attachProgress(ctx, userID, courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (s *CourseService) GetCourse(ctx context.Context, userID, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindDetail(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	list := []model.Course{*course}
	if err := s.attachProgress(ctx, userID, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *CourseService) CreateCourse(ctx context.Context, instructorID uint, req CreateCourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Level:          req.Level,
		Duration:       req.Duration,
		ImageURL:       req.ImageURL,
		InstructorID:   instructorID,
		IsPremium:      req.IsPremium,
		HasCertificate: req.HasCertificate,
	}
	for i, m := range req.Modules {
		module := model.CourseModule{
			Title:       m.Title,
			Description: m.Description,
			Order:       orderOr(m.Order, i+1),
		}
		for j, l := range m.Lessons {
			module.Lessons = append(module.Lessons, model.Lesson{
				Title:    l.Title,
				Content:  l.Content,
				Type:     l.Type,
				Duration: l.Duration,
				Order:    orderOr(l.Order, j+1),
			})
		}
		course.Modules = append(course.Modules, module)
	}

	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ListEnrollments(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(ctx, userID)
}

// attachProgress 为已报名的课程填充当前用户进度
func (s *CourseService) attachProgress(ctx context.Context, userID uint, courses []model.Course) error {
	if userID == 0 || len(courses) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	progress, err := s.ProgressRepo.FindPercentages(ctx, userID, ids)
	if err != nil {
		return err
	}
	for i := range courses {
		if p, ok := progress[courses[i].ID]; ok {
			value := p
			courses[i].UserProgress = &value
		}
	}
	return nil
}

func orderOr(order, fallback int) int {
	if order > 0 {
		return order
	}
	return fallback
}

// resultLabel 指标标签：success、业务错误码或 error
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if appErr, ok := util.AsAppError(err); ok {
		return strings.ToLower(appErr.Code)
	}
	return "error"
}
