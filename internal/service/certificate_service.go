package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type IssueResult string

const (
	CertificateIssued        IssueResult = "issued"
	CertificateAlreadyExists IssueResult = "already_exists"
	CertificateNotOffered    IssueResult = "not_offered"
)

type CertificateService struct {
	CertificateRepo *repository.CertificateRepository
	CourseRepo      *repository.CourseRepository
	now             func() time.Time
}

func NewCertificateService(certRepo *repository.CertificateRepository, courseRepo *repository.CourseRepository) *CertificateService {
	return &CertificateService{
		CertificateRepo: certRepo,
		CourseRepo:      courseRepo,
		now:             time.Now,
	}
}

// Issue 幂等，同一用户同一课程最多一张证书
func (s *CertificateService) Issue(ctx context.Context, userID, courseID uint) (IssueResult, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", util.ErrCourseNotFound
	}
	if err != nil {
		return "", err
	}
	if !course.HasCertificate {
		return CertificateNotOffered, nil
	}

	created, err := s.CertificateRepo.CreateIfAbsent(ctx, &model.Certificate{
		UserID:       userID,
		CourseID:     courseID,
		SerialNumber: model.GenerateUUID(),
		IssuedAt:     s.now(),
	})
	if err != nil {
		return "", err
	}
	if !created {
		return CertificateAlreadyExists, nil
	}

	logger.Log.Info("Certificate issued", zap.Uint("userId", userID), zap.Uint("courseId", courseID))
	return CertificateIssued, nil
}

func (s *CertificateService) ListByUser(ctx context.Context, userID uint) ([]model.Certificate, error) {
	return s.CertificateRepo.ListByUser(ctx, userID)
}

func CertificateHandler(svc *CertificateService) OutboxHandler {
	return func(ctx context.Context, task *model.OutboxTask) error {
		_, err := svc.Issue(ctx, task.UserID, task.CourseID)
		return err
	}
}
