package service

import (
	"context"
	"encoding/base64"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/testutil"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/security"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssessmentSubmit_GradesAndNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "alice", false)

	assessment := &model.Assessment{
		Title:        "Go Quiz",
		PassingScore: 60,
		Questions: []model.AssessmentQuestion{
			{QuestionText: "Keyword for goroutines?", CorrectAnswer: "go"},
			{QuestionText: "Zero value of int?", CorrectAnswer: "0"},
			{QuestionText: "Is Go garbage collected?", CorrectAnswer: "True"},
		},
	}
	require.NoError(t, f.assessments.AssessmentRepo.Create(ctx, assessment))
	q := assessment.Questions

	attempt, err := f.assessments.Submit(ctx, user.ID, assessment.ID, map[string]string{
		strconv.Itoa(int(q[0].ID)): " GO ",
		strconv.Itoa(int(q[1].ID)): "0",
		strconv.Itoa(int(q[2].ID)): "false",
	})
	require.NoError(t, err)
	assert.Equal(t, 67, attempt.Score)
	assert.True(t, attempt.Passed)

	attempt, err = f.assessments.Submit(ctx, user.ID, assessment.ID, map[string]string{
		strconv.Itoa(int(q[0].ID)): "go",
	})
	require.NoError(t, err)
	assert.Equal(t, 33, attempt.Score)
	assert.False(t, attempt.Passed)

	attempts, err := f.assessments.ListAttempts(ctx, user.ID, assessment.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)

	f.drain(t)
	assert.EqualValues(t, 2, f.count(t, &model.Notification{}, "user_id = ? AND type = ?", user.ID, model.NotificationAssessmentGrade))
}

func TestAssessmentSubmit_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.assessments.Submit(ctx, 1, 1, nil)
	assert.ErrorIs(t, err, util.ErrEmptyAnswers)

	_, err = f.assessments.Submit(ctx, 1, 9999, map[string]string{"1": "a"})
	assert.ErrorIs(t, err, util.ErrAssessmentNotFound)
}

func TestGradeAnswers_NoQuestions(t *testing.T) {
	assert.Zero(t, gradeAnswers(nil, map[string]string{"1": "a"}))
}

func TestCommunityReply_NotifiesTopicAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	author := testutil.CreateUser(t, f.db, "bob", false)
	replier := testutil.CreateUser(t, f.db, "carol", false)

	topic, err := f.community.CreateTopic(ctx, author.ID, CreateTopicRequest{Title: "Generics", Content: "Thoughts?", Category: "go"})
	require.NoError(t, err)

	_, err = f.community.Reply(ctx, replier.ID, topic.ID, CreateReplyRequest{Content: "Love them"})
	require.NoError(t, err)
	_, err = f.community.Reply(ctx, author.ID, topic.ID, CreateReplyRequest{Content: "Thanks"})
	require.NoError(t, err)

	detail, err := f.community.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.ReplyCount)
	require.Len(t, detail.Replies, 2)
	require.NotNil(t, detail.Author)
	assert.Equal(t, "bob", detail.Author.Name)

	f.drain(t)
	assert.EqualValues(t, 1, f.count(t, &model.Notification{}, "user_id = ? AND type = ?", author.ID, model.NotificationForumReply))

	_, err = f.community.Reply(ctx, replier.ID, 9999, CreateReplyRequest{Content: "?"})
	assert.ErrorIs(t, err, util.ErrTopicNotFound)

	page, err := f.community.ListTopics(ctx, "go", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.notifications.Send(ctx, 1, model.NotificationSystemAlert, "Maintenance", "Tonight")
	require.NoError(t, err)
	_, err = f.notifications.Send(ctx, 1, model.NotificationSystemAlert, "Welcome", "Hi")
	require.NoError(t, err)

	assert.ErrorIs(t, f.notifications.MarkAsRead(ctx, n.ID, 2), util.ErrNotificationNotFound)
	require.NoError(t, f.notifications.MarkAsRead(ctx, n.ID, 1))
	require.NoError(t, f.notifications.MarkAsRead(ctx, n.ID, 1))

	page, err := f.notifications.List(ctx, 1, true, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	page, err = f.notifications.List(ctx, 1, false, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)
}

func TestAchievements_MilestonesAndLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	leader := testutil.CreateUser(t, f.db, "dave", false)
	runnerUp := testutil.CreateUser(t, f.db, "erin", false)

	complete := func(u *model.User, n int) {
		for i := 0; i < n; i++ {
			course := testutil.CreateCourse(t, f.db, "Course", false, false)
			f.enroll(t, u, course)
			_, err := f.progress.UpdateProgress(ctx, u.ID, course.ID, 100)
			require.NoError(t, err)
		}
		f.drain(t)
	}
	complete(leader, 5)
	complete(runnerUp, 1)

	stats, err := f.achievements.GetUserAchievements(ctx, leader.ID)
	require.NoError(t, err)
	// 5 个课程徽章 + 首门 + 五门
	assert.Len(t, stats.Badges, 7)
	assert.Equal(t, 5*courseBadgeXP+50+200, stats.TotalXP)
	assert.Equal(t, stats.TotalXP/xpPerLevel+1, stats.CurrentLevel)

	board, err := f.achievements.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, leader.ID, board[0].UserID)
	assert.Equal(t, runnerUp.ID, board[1].UserID)

	_, err = f.achievements.GetUserAchievements(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestCalculateLevel(t *testing.T) {
	level, next := calculateLevel(0)
	assert.Equal(t, 1, level)
	assert.Equal(t, 200, next)

	level, next = calculateLevel(450)
	assert.Equal(t, 3, level)
	assert.Equal(t, 600, next)
}

func TestConsent_EncryptsAtRest(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	protection, err := security.NewDataProtection(base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32))))
	require.NoError(t, err)
	repo := repository.NewConsentRepository(db)
	svc := NewConsentService(repo, protection)

	longUA := strings.Repeat("a", 600)
	consent, err := svc.Record(ctx, 1, "marketing", true, "10.0.0.1", longUA)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", consent.IPAddress)
	assert.Len(t, consent.UserAgent, maxUserAgentLength)

	var raw model.UserConsent
	require.NoError(t, db.First(&raw, consent.ID).Error)
	assert.NotEqual(t, "10.0.0.1", raw.IPAddress)
	assert.NotContains(t, raw.UserAgent, "aaaa")

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "10.0.0.1", list[0].IPAddress)

	_, err = svc.Record(ctx, 1, "telemetry", true, "", "")
	assert.ErrorIs(t, err, util.ErrInvalidConsent)

	require.NoError(t, svc.Revoke(ctx, 1, "marketing"))
	assert.ErrorIs(t, svc.Revoke(ctx, 1, "marketing"), util.ErrConsentNotFound)
}
