package service

import (
	"context"
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/testutil"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion_IssuesCertificateAndAchievement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "alice", false)
	course := testutil.CreateCourse(t, f.db, "Go Basics", false, true)
	f.enroll(t, user, course)

	_, err := f.progress.UpdateProgress(ctx, user.ID, course.ID, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, f.drain(t))
	assert.EqualValues(t, 1, f.count(t, &model.Certificate{}, "user_id = ?", user.ID))
	assert.EqualValues(t, 1, f.count(t, &model.Notification{}, "user_id = ? AND type = ?", user.ID, model.NotificationCourseUpdate))

	badges, err := f.achievements.AchievementRepo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, badges, 2) // 课程徽章 + 首门课程

	stats, err := f.achievements.GetUserAchievements(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, courseBadgeXP+50, stats.TotalXP)

	// 重复执行不会产生第二张证书或重复加经验
	res, err := f.certificates.Issue(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, CertificateAlreadyExists, res)
	require.NoError(t, f.achievements.UpdateForCourse(ctx, user.ID, course.ID))

	stats, err = f.achievements.GetUserAchievements(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, courseBadgeXP+50, stats.TotalXP)
	assert.EqualValues(t, 1, f.count(t, &model.Certificate{}, "user_id = ?", user.ID))
}

func TestCompletion_NoCertificateWhenNotOffered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "bob", false)
	course := testutil.CreateCourse(t, f.db, "Go Basics", false, false)
	f.enroll(t, user, course)

	_, err := f.progress.UpdateProgress(ctx, user.ID, course.ID, 100)
	require.NoError(t, err)
	f.drain(t)

	assert.Zero(t, f.count(t, &model.OutboxTask{}, "kind = ?", model.OutboxCertificate))
	assert.Zero(t, f.count(t, &model.Certificate{}, "user_id = ?", user.ID))

	res, err := f.certificates.Issue(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, CertificateNotOffered, res)
}

func TestOutboxWorker_RetriesThenFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := time.Now()
	f.worker.now = func() time.Time { return clock }

	calls := 0
	f.worker.Handle(model.OutboxCertificate, func(ctx context.Context, task *model.OutboxTask) error {
		calls++
		return errors.New("storage unavailable")
	})

	_, err := f.outbox.Enqueue(ctx, &model.OutboxTask{
		Kind:          model.OutboxCertificate,
		DedupKey:      "certificate:1:1",
		UserID:        1,
		CourseID:      1,
		NextAttemptAt: clock,
	})
	require.NoError(t, err)

	assert.Zero(t, f.drain(t))
	task, err := f.outbox.FindByDedupKey(ctx, "certificate:1:1")
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, task.Status)
	assert.Equal(t, 1, task.Attempts)
	assert.Equal(t, "storage unavailable", task.LastError)

	// 未到重试时间不会执行
	f.drain(t)
	assert.Equal(t, 1, calls)

	for i := 0; i < 2; i++ {
		clock = clock.Add(time.Hour)
		f.drain(t)
	}
	assert.Equal(t, 3, calls)

	task, err = f.outbox.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxFailed, task.Status)
	assert.Equal(t, 3, task.Attempts)

	clock = clock.Add(time.Hour)
	f.drain(t)
	assert.Equal(t, 3, calls)
}

func TestOutboxWorker_RecoversHandlerPanic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.worker.Handle(model.OutboxAchievement, func(ctx context.Context, task *model.OutboxTask) error {
		panic("boom")
	})

	_, err := f.outbox.Enqueue(ctx, &model.OutboxTask{Kind: model.OutboxAchievement, DedupKey: "achievement:1:1", UserID: 1, CourseID: 1})
	require.NoError(t, err)

	assert.Zero(t, f.drain(t))
	task, err := f.outbox.FindByDedupKey(ctx, "achievement:1:1")
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, task.Status)
	assert.Contains(t, task.LastError, "boom")
}

func TestOutboxRepository_EnqueueDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.outbox.Enqueue(ctx, &model.OutboxTask{Kind: model.OutboxNotification, DedupKey: "n:1", UserID: 1})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.outbox.Enqueue(ctx, &model.OutboxTask{Kind: model.OutboxNotification, DedupKey: "n:1", UserID: 1})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := f.outbox.CountByStatus(ctx, model.OutboxPending)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOutboxWorker_RunProcessesOnNotify(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "carol", false)
	course := testutil.CreateCourse(t, f.db, "Go Basics", false, true)
	f.enroll(t, user, course)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.worker.Run(ctx)
		close(done)
	}()

	_, err := f.progress.UpdateProgress(context.Background(), user.ID, course.ID, 100)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var n int64
		f.db.Model(&model.Certificate{}).Where("user_id = ?", user.ID).Count(&n)
		return n == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}

func TestOutboxWorker_UpdateConfigReschedules(t *testing.T) {
	f := newFixture(t)
	c := cron.New()
	require.NoError(t, f.worker.Schedule(c))
	require.Len(t, c.Entries(), 1)
	first := c.Entries()[0].ID

	f.worker.UpdateConfig(f.worker.config())
	assert.Equal(t, first, c.Entries()[0].ID)

	cfg := f.worker.config()
	cfg.SweepSchedule = "@every 5m"
	f.worker.UpdateConfig(cfg)
	require.Len(t, c.Entries(), 1)
	assert.NotEqual(t, first, c.Entries()[0].ID)
	assert.Equal(t, "@every 5m", f.worker.config().SweepSchedule)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 5*time.Second, backoff(5*time.Second, 1))
	assert.Equal(t, 20*time.Second, backoff(5*time.Second, 3))
	assert.Equal(t, time.Hour, backoff(5*time.Second, 20))
}
