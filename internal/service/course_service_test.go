package service

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/testutil"
	"learnhub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll_CreatesEnrollmentAndZeroProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "alice", false)
	course := testutil.CreateCourse(t, f.db, "Go Basics", false, false)

	enrollment, err := f.courses.Enroll(ctx, principalOf(user), course.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, enrollment.UserID)
	assert.False(t, enrollment.EnrolledAt.IsZero())

	progress, err := f.progress.ProgressRepo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, progress.ProgressPercentage)
	assert.False(t, progress.Completed)

	reloaded, err := f.courses.CourseRepo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.EnrolledCount)
}

func TestEnroll_DuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "bob", false)
	course := testutil.CreateCourse(t, f.db, "Go Basics", false, false)
	f.enroll(t, user, course)

	_, err := f.courses.Enroll(ctx, principalOf(user), course.ID)
	require.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	appErr, ok := util.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, util.KindConflict, appErr.Kind)

	assert.EqualValues(t, 1, f.count(t, &model.Enrollment{}, "user_id = ?", user.ID))
	reloaded, err := f.courses.CourseRepo.FindByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.EnrolledCount)
}

func TestEnroll_PremiumCourseRequiresPremiumUser(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "carol", false)
	course := testutil.CreateCourse(t, f.db, "Advanced Go", true, false)

	_, err := f.courses.Enroll(context.Background(), principalOf(user), course.ID)
	require.ErrorIs(t, err, util.ErrPremiumRequired)

	assert.Zero(t, f.count(t, &model.Enrollment{}, "user_id = ?", user.ID))
	assert.Zero(t, f.count(t, &model.CourseProgress{}, "user_id = ?", user.ID))

	premium := testutil.CreateUser(t, f.db, "dave", true)
	_, err = f.courses.Enroll(context.Background(), principalOf(premium), course.ID)
	require.NoError(t, err)
}

func TestEnroll_UnknownCourse(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "erin", true)

	_, err := f.courses.Enroll(context.Background(), principalOf(user), 9999)
	require.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestEnroll_AlreadyEnrolledCheckedBeforePremium(t *testing.T) {
	f := newFixture(t)
	user := testutil.CreateUser(t, f.db, "frank", false)
	course := testutil.CreateCourse(t, f.db, "Advanced Go", true, false)
	require.NoError(t, f.db.Create(&model.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()}).Error)

	_, err := f.courses.Enroll(context.Background(), principalOf(user), course.ID)
	require.ErrorIs(t, err, util.ErrAlreadyEnrolled)
}

func TestListCourses_AttachesProgressForEnrolledCourses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "grace", false)
	enrolled := testutil.CreateCourse(t, f.db, "Go Basics", false, false)
	testutil.CreateCourse(t, f.db, "Rust Basics", false, false)
	f.enroll(t, user, enrolled)
	_, err := f.progress.UpdateProgress(ctx, user.ID, enrolled.ID, 40)
	require.NoError(t, err)

	page, err := f.courses.ListCourses(ctx, user.ID, repository.CourseQuery{Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	courses := page.List.([]model.Course)
	for _, c := range courses {
		if c.ID == enrolled.ID {
			require.NotNil(t, c.UserProgress)
			assert.Equal(t, 40.0, *c.UserProgress)
		} else {
			assert.Nil(t, c.UserProgress)
		}
	}
}

func TestCreateCourse_PersistsModulesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, err := f.courses.CreateCourse(ctx, 7, CreateCourseRequest{
		Title:    "Databases",
		Category: "data",
		Level:    "intermediate",
		Modules: []CreateModuleRequest{
			{Title: "SQL", Lessons: []CreateLessonRequest{{Title: "SELECT"}, {Title: "JOIN"}}},
			{Title: "Indexes"},
		},
	})
	require.NoError(t, err)

	detail, err := f.courses.GetCourse(ctx, 0, course.ID)
	require.NoError(t, err)
	require.Len(t, detail.Modules, 2)
	assert.Equal(t, "SQL", detail.Modules[0].Title)
	assert.Equal(t, 1, detail.Modules[0].Order)
	require.Len(t, detail.Modules[0].Lessons, 2)
	assert.Equal(t, "JOIN", detail.Modules[0].Lessons[1].Title)

	_, err = f.courses.GetCourse(ctx, 0, 9999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}
