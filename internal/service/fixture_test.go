package service

import (
	"context"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/testutil"
	"learnhub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db     *gorm.DB
	outbox *repository.OutboxRepository
	worker *OutboxWorker
	hub    *NotificationHub

	notifications *NotificationService
	courses       *CourseService
	completion    *CompletionService
	progress      *ProgressService
	certificates  *CertificateService
	achievements  *AchievementService
	events        *EventService
	community     *CommunityService
	assessments   *AssessmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)

	outboxRepo := repository.NewOutboxRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	completionRepo := repository.NewCompletionRepository(db)

	f := &fixture{
		db:     db,
		outbox: outboxRepo,
		worker: NewOutboxWorker(outboxRepo, config.OutboxConfig{MaxAttempts: 3, BaseBackoff: time.Second}),
		hub:    NewNotificationHub(nil),
	}
	f.notifications = NewNotificationService(repository.NewNotificationRepository(db), f.hub)
	f.courses = NewCourseService(db, courseRepo, repository.NewEnrollmentRepository(db), progressRepo)
	f.completion = NewCompletionService(courseRepo, completionRepo, outboxRepo)
	f.progress = NewProgressService(db, progressRepo, courseRepo, f.completion, f.worker)
	f.certificates = NewCertificateService(repository.NewCertificateRepository(db), courseRepo)
	f.achievements = NewAchievementService(db, repository.NewAchievementRepository(db), repository.NewUserRepository(db), courseRepo, completionRepo)
	f.events = NewEventService(db, repository.NewEventRepository(db), outboxRepo, f.worker)
	f.community = NewCommunityService(db, repository.NewTopicRepository(db), outboxRepo, f.worker)
	f.assessments = NewAssessmentService(db, repository.NewAssessmentRepository(db), outboxRepo, f.worker)

	f.worker.Handle(model.OutboxCertificate, CertificateHandler(f.certificates))
	f.worker.Handle(model.OutboxAchievement, AchievementHandler(f.achievements))
	f.worker.Handle(model.OutboxNotification, NotificationHandler(f.notifications))
	return f
}

func (f *fixture) enroll(t *testing.T, user *model.User, course *model.Course) {
	t.Helper()
	_, err := f.courses.Enroll(context.Background(), principalOf(user), course.ID)
	require.NoError(t, err)
}

func (f *fixture) drain(t *testing.T) int {
	t.Helper()
	n, err := f.worker.ProcessPending(context.Background())
	require.NoError(t, err)
	return n
}

func (f *fixture) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}

func principalOf(u *model.User) util.Principal {
	return util.Principal{ID: u.ID, Role: u.Role, IsPremium: u.IsPremium}
}
