package service

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/model"
	"apart_backend/internal/testutil"
	"apart_backend/internal/util"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActivities_RequiresLiveAttempt(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	fx := newExamFixture(t, svc, model.Exam{AttemptsAllowed: 0, PassMarkPercent: 60, TimeLimitMinutes: testutil.UintPtr(10)}, 2)

	_, err := svc.exams.ListActivities(ctx, fx.exam.ID, fx.user.ID, false)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	start := time.Now().Add(-time.Hour).Truncate(time.Second)
	svc.setNow(start)
	_, err = svc.attempts.StartAttempt(ctx, fx.exam.ID, fx.user.ID)
	require.NoError(t, err)

	items, err := svc.exams.ListActivities(ctx, fx.exam.ID, fx.user.ID, false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, fx.activities[0].ID, items[0].Activity.ID)
	assert.Equal(t, model.ActivityChoice, items[0].Activity.Type)
	assert.True(t, items[0].Required)
	assert.EqualValues(t, 1, items[0].Position)
	assert.Contains(t, items[0].Activity.Payload, "choices")
	assert.Equal(t, false, items[0].Activity.Payload["is_multiple"])

	svc.setNow(start.Add(11 * time.Minute))
	_, err = svc.exams.ListActivities(ctx, fx.exam.ID, fx.user.ID, false)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)
}

func TestListActivities_Shuffle(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	fx := newExamFixture(t, svc, model.Exam{AttemptsAllowed: 0, PassMarkPercent: 60}, 3)
	_, err := svc.attempts.StartAttempt(ctx, fx.exam.ID, fx.user.ID)
	require.NoError(t, err)

	// 确定性的“打乱”：整体反转
	svc.exams.shuffle = func(n int, swap func(i, j int)) {
		for i := 0; i < n/2; i++ {
			swap(i, n-1-i)
		}
	}
	items, err := svc.exams.ListActivities(ctx, fx.exam.ID, fx.user.ID, true)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, fx.activities[2].ID, items[0].Activity.ID)
	assert.Equal(t, fx.activities[0].ID, items[2].Activity.ID)
}

func TestListActivities_UnpublishedExam(t *testing.T) {
	svc := newTestServices(t)
	course, _ := testutil.CreateCourse(t, svc.db, "Spanish")
	draft := testutil.CreateExam(t, svc.db, &model.Exam{CourseID: course.ID, AttemptsAllowed: 1, PassMarkPercent: 60})

	_, err := svc.exams.ListActivities(context.Background(), draft.ID, 1, false)
	assert.ErrorIs(t, err, util.ErrExamNotFound)
}

func findCourseExam(t *testing.T, items []dto.CourseExamResponse, examID uint) dto.CourseExamResponse {
	t.Helper()
	for _, it := range items {
		if it.ID == examID {
			return it
		}
	}
	t.Fatalf("exam %d not listed", examID)
	return dto.CourseExamResponse{}
}

func TestListCourseExams_UserSummary(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	fx := newExamFixture(t, svc, model.Exam{Title: "Midterm", AttemptsAllowed: 2, PassMarkPercent: 60}, 2)
	courseID := fx.exam.CourseID
	open := testutil.CreateExam(t, svc.db, &model.Exam{CourseID: courseID, Title: "Practice", IsPublished: true, AttemptsAllowed: 0})
	testutil.CreateExam(t, svc.db, &model.Exam{CourseID: courseID, Title: "Draft", AttemptsAllowed: 1})

	items, err := svc.exams.ListCourseExams(ctx, courseID, fx.user.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	mid := findCourseExam(t, items, fx.exam.ID)
	assert.Equal(t, "Midterm", mid.Title)
	assert.EqualValues(t, 2, mid.AttemptsAllowed)
	assert.True(t, mid.HasAttemptsLeft)
	require.NotNil(t, mid.RemainingAttempts)
	assert.EqualValues(t, 2, *mid.RemainingAttempts)
	assert.Nil(t, mid.UserLastAttemptAt)
	assert.Nil(t, mid.UserPercentage)
	assert.Nil(t, mid.UserPassed)

	practice := findCourseExam(t, items, open.ID)
	assert.Nil(t, practice.RemainingAttempts)
	assert.True(t, practice.HasAttemptsLeft)

	t0 := time.Now().Add(-time.Hour).Truncate(time.Second)
	svc.setNow(t0)
	first, err := svc.attempts.StartAttempt(ctx, fx.exam.ID, fx.user.ID)
	require.NoError(t, err)
	_, err = svc.attempts.FinishAttempt(ctx, first.Attempt.ID, fx.user.ID, answersFor(fx.activities, 2))
	require.NoError(t, err)

	svc.setNow(t0.Add(10 * time.Minute))
	second, err := svc.attempts.StartAttempt(ctx, fx.exam.ID, fx.user.ID)
	require.NoError(t, err)
	_, err = svc.attempts.FinishAttempt(ctx, second.Attempt.ID, fx.user.ID, answersFor(fx.activities, 1))
	require.NoError(t, err)

	items, err = svc.exams.ListCourseExams(ctx, courseID, fx.user.ID)
	require.NoError(t, err)
	mid = findCourseExam(t, items, fx.exam.ID)
	assert.False(t, mid.HasAttemptsLeft)
	require.NotNil(t, mid.RemainingAttempts)
	assert.Zero(t, *mid.RemainingAttempts)
	require.NotNil(t, mid.UserLastAttemptAt)
	assert.True(t, mid.UserLastAttemptAt.Equal(t0.Add(10*time.Minute)))
	// 最好成绩来自第一次
	require.NotNil(t, mid.UserPercentage)
	assert.InDelta(t, 100.0, *mid.UserPercentage, 0.001)
	require.NotNil(t, mid.UserPassed)
	assert.True(t, *mid.UserPassed)

	// 其他用户看不到这些作答
	other := testutil.CreateUser(t, svc.db, "ben", model.Student)
	items, err = svc.exams.ListCourseExams(ctx, courseID, other.ID)
	require.NoError(t, err)
	mid = findCourseExam(t, items, fx.exam.ID)
	assert.True(t, mid.HasAttemptsLeft)
	assert.Nil(t, mid.UserPercentage)
}

func TestListCourseExams_LiveAndExpiredAttempts(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	fx := newExamFixture(t, svc, model.Exam{AttemptsAllowed: 1, PassMarkPercent: 60, TimeLimitMinutes: testutil.UintPtr(10)}, 1)

	t0 := time.Now().Add(-time.Hour).Truncate(time.Second)
	svc.setNow(t0)
	_, err := svc.attempts.StartAttempt(ctx, fx.exam.ID, fx.user.ID)
	require.NoError(t, err)

	svc.setNow(t0.Add(5 * time.Minute))
	items, err := svc.exams.ListCourseExams(ctx, fx.exam.CourseID, fx.user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].HasAttemptsLeft)
	require.NotNil(t, items[0].RemainingAttempts)
	assert.EqualValues(t, 1, *items[0].RemainingAttempts)

	// 超时未关闭的作答按已用计算
	svc.setNow(t0.Add(11 * time.Minute))
	items, err = svc.exams.ListCourseExams(ctx, fx.exam.CourseID, fx.user.ID)
	require.NoError(t, err)
	assert.False(t, items[0].HasAttemptsLeft)
	assert.Zero(t, *items[0].RemainingAttempts)
	assert.Nil(t, items[0].UserPercentage)
}

func TestListCourseExams_UnknownCourse(t *testing.T) {
	svc := newTestServices(t)
	user := testutil.CreateUser(t, svc.db, "ana", model.Student)
	_, err := svc.exams.ListCourseExams(context.Background(), 999, user.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}
