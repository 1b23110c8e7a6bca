package repository

import (
	"context"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/testutil"
	"learnhub_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimSeat_FullEventRejected(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEventRepository(db)
	event := testutil.CreateEvent(t, db, "Meetup", time.Now().Add(time.Hour), 1)

	claimed, err := repo.ClaimSeat(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimSeat(ctx, event.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentAttendees)
}

func TestClaimSeat_UnlimitedAndMissingEvent(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEventRepository(db)
	event := testutil.CreateEvent(t, db, "Open house", time.Now().Add(time.Hour), 0)

	for i := 0; i < 3; i++ {
		claimed, err := repo.ClaimSeat(ctx, event.ID)
		require.NoError(t, err)
		assert.True(t, claimed)
	}

	claimed, err := repo.ClaimSeat(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestCreateRegistration_DuplicateIsConflict(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEventRepository(db)
	user := testutil.CreateUser(t, db, "alice", false)
	event := testutil.CreateEvent(t, db, "Meetup", time.Now().Add(time.Hour), 10)

	require.NoError(t, repo.CreateRegistration(ctx, &model.EventRegistration{UserID: user.ID, EventID: event.ID, RegistrationDate: time.Now()}))
	err := repo.CreateRegistration(ctx, &model.EventRegistration{UserID: user.ID, EventID: event.ID, RegistrationDate: time.Now()})
	assert.ErrorIs(t, err, util.ErrAlreadyRegistered)
}

func TestEnrollmentCreate_DuplicateIsConflict(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewEnrollmentRepository(db)
	user := testutil.CreateUser(t, db, "bob", false)
	course := testutil.CreateCourse(t, db, "Go Basics", false, false)

	require.NoError(t, repo.Create(ctx, &model.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()}))
	err := repo.Create(ctx, &model.Enrollment{UserID: user.ID, CourseID: course.ID, EnrolledAt: time.Now()})
	assert.ErrorIs(t, err, util.ErrAlreadyEnrolled)

	count, err := repo.CountByCourse(ctx, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestMarkCompleted_OnlyFirstCallWins(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewProgressRepository(db)
	user := testutil.CreateUser(t, db, "carol", false)
	course := testutil.CreateCourse(t, db, "Go Basics", false, true)

	progress := &model.CourseProgress{UserID: user.ID, CourseID: course.ID, LastAccessed: time.Now()}
	require.NoError(t, repo.Create(ctx, progress))

	first := time.Now().Truncate(time.Second)
	ok, err := repo.MarkCompleted(ctx, progress.ID, first)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkCompleted(ctx, progress.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := repo.FindByUserAndCourse(ctx, user.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	require.NotNil(t, stored.CompletedAt)
	assert.True(t, stored.CompletedAt.Equal(first))
}

func TestCompletionCreateOnce(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewCompletionRepository(db)

	created, err := repo.CreateOnce(ctx, &model.CourseCompletion{UserID: 1, CourseID: 2, CompletedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateOnce(ctx, &model.CourseCompletion{UserID: 1, CourseID: 2, CompletedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, created)
}
