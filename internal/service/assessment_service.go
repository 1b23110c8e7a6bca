package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AssessmentService struct {
	DB             *gorm.DB
	AssessmentRepo *repository.AssessmentRepository
	OutboxRepo     *repository.OutboxRepository
	Dispatcher     Dispatcher
	now            func() time.Time
}

func NewAssessmentService(
	db *gorm.DB,
	assessmentRepo *repository.AssessmentRepository,
	outboxRepo *repository.OutboxRepository,
	dispatcher Dispatcher,
) *AssessmentService {
	return &AssessmentService{
		DB:             db,
		AssessmentRepo: assessmentRepo,
		OutboxRepo:     outboxRepo,
		Dispatcher:     dispatcher,
		now:            time.Now,
	}
}

type SubmitAssessmentRequest struct {
	// key 为题目ID
	Answers map[string]string `json:"answers" binding:"required"`
}

// GetAssessment 正确答案不会序列化给客户端
func (s *AssessmentService) GetAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	assessment, err := s.AssessmentRepo.FindWithQuestions(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAssessmentNotFound
	}
	return assessment, err
}

// Submit 按答对比例计分（四舍五入到整数），达到及格线即通过
func (s *AssessmentService) Submit(ctx context.Context, userID, assessmentID uint, answers map[string]string) (*model.AssessmentAttempt, error) {
	if len(answers) == 0 {
		return nil, util.ErrEmptyAnswers
	}

	assessment, err := s.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	score := gradeAnswers(assessment.Questions, answers)
	attempt := &model.AssessmentAttempt{
		UserID:       userID,
		AssessmentID: assessmentID,
		Answers:      datatypes.NewJSONType(answers),
		Score:        score,
		Passed:       score >= assessment.PassingScore,
		SubmittedAt:  s.now(),
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.AssessmentRepo.WithTx(tx).CreateAttempt(ctx, attempt); err != nil {
			return err
		}
		result := "not passed"
		if attempt.Passed {
			result = "passed"
		}
		return enqueueNotification(ctx, s.OutboxRepo.WithTx(tx), userID,
			fmt.Sprintf("notification:assessment_grade:%d", attempt.ID),
			model.NotificationPayload{
				Type:    model.NotificationAssessmentGrade,
				Title:   "Assessment graded",
				Message: fmt.Sprintf("%s: %d/100, %s.", assessment.Title, score, result),
			})
	})
	if err != nil {
		return nil, err
	}

	if s.Dispatcher != nil {
		s.Dispatcher.Notify()
	}
	return attempt, nil
}

func (s *AssessmentService) ListAttempts(ctx context.Context, userID, assessmentID uint) ([]model.AssessmentAttempt, error) {
	return s.AssessmentRepo.ListAttempts(ctx, userID, assessmentID)
}

func gradeAnswers(questions []model.AssessmentQuestion, answers map[string]string) int {
	if len(questions) == 0 {
		return 0
	}
	correct := 0
	for _, q := range questions {
		given, ok := answers[strconv.FormatUint(uint64(q.ID), 10)]
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(q.CorrectAnswer)) {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(len(questions)) * 100))
}
