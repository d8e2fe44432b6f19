package controller

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/model"
	"apart_backend/internal/testutil"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type examSetup struct {
	user       *model.User
	exam       *model.Exam
	activities []*model.Activity
}

func newExamSetup(t *testing.T, srv *testServer, attemptsAllowed uint) examSetup {
	t.Helper()
	course, modules := testutil.CreateCourse(t, srv.db, "Spanish", "Basics")
	acts := testutil.CreateChoiceActivities(t, srv.db, &modules[0].ID, 1, 4)
	exam := testutil.CreateExam(t, srv.db, &model.Exam{
		CourseID:        course.ID,
		Title:           "Quiz 1",
		IsPublished:     true,
		AttemptsAllowed: attemptsAllowed,
		PassMarkPercent: 50,
	}, acts...)
	return examSetup{
		user:       testutil.CreateUser(t, srv.db, "ana", model.Student),
		exam:       exam,
		activities: acts,
	}
}

func finishBody(t *testing.T, acts []*model.Activity, correct int) string {
	t.Helper()
	req := dto.FinishAttemptRequest{}
	for i, a := range acts {
		req.Answers = append(req.Answers, dto.AnswerItem{ActivityID: a.ID, InputData: testutil.ChoiceInput(a, i < correct)})
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	return string(b)
}

func TestExamFlow(t *testing.T) {
	srv := newTestServer(t)
	fx := newExamSetup(t, srv, 1)
	startPath := fmt.Sprintf("/api/exams/%d/start/", fx.exam.ID)
	listPath := fmt.Sprintf("/api/exams/%d/activities/", fx.exam.ID)

	w := srv.do(t, http.MethodGet, listPath, "", fx.user)
	require.Equal(t, http.StatusForbidden, w.Code)
	var denied map[string]string
	decode(t, w, &denied)
	assert.Equal(t, "Forbidden.", denied["detail"])

	w = srv.do(t, http.MethodPost, startPath, "", fx.user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started dto.StartAttemptResponse
	decode(t, w, &started)
	assert.NotZero(t, started.AttemptID)
	assert.EqualValues(t, 1, started.AttemptNumber)
	assert.Equal(t, model.AttemptInProgress, started.Status)

	w = srv.do(t, http.MethodPost, startPath, "", fx.user)
	require.Equal(t, http.StatusOK, w.Code)
	var resumed dto.StartAttemptResponse
	decode(t, w, &resumed)
	assert.Equal(t, started.AttemptID, resumed.AttemptID)

	w = srv.do(t, http.MethodGet, listPath+"?shuffle=true", "", fx.user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var items []dto.ExamActivityResponse
	decode(t, w, &items)
	require.Len(t, items, len(fx.activities))
	assert.NotNil(t, items[0].Activity.Payload["choices"])

	finishPath := fmt.Sprintf("/api/exam-attempts/%d/finish/", started.AttemptID)
	w = srv.do(t, http.MethodPost, finishPath, finishBody(t, fx.activities, 3), fx.user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result dto.AttemptResultResponse
	decode(t, w, &result)
	assert.Equal(t, started.AttemptID, result.AttemptID)
	assert.Equal(t, fx.exam.ID, result.ExamID)
	assert.Equal(t, model.AttemptGraded, result.Status)
	assert.EqualValues(t, 3, result.ScorePoints)
	assert.EqualValues(t, 4, result.MaxPoints)
	assert.EqualValues(t, 3, result.CorrectCount)
	assert.EqualValues(t, 4, result.TotalQuestions)
	assert.InDelta(t, 75.0, result.Percentage, 0.001)
	assert.True(t, result.Passed)
	assert.NotNil(t, result.FinishedAt)

	w = srv.do(t, http.MethodPost, finishPath, finishBody(t, fx.activities, 4), fx.user)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodPost, startPath, "", fx.user)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var exhausted map[string]string
	decode(t, w, &exhausted)
	assert.Equal(t, "No attempts remaining.", exhausted["detail"])
}

func TestStartAttempt_UnknownExam(t *testing.T) {
	srv := newTestServer(t)
	user := testutil.CreateUser(t, srv.db, "ana", model.Student)

	w := srv.do(t, http.MethodPost, "/api/exams/9999/start/", "", user)
	require.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Contains(t, body, "detail")
}

func TestFinishAttempt_Rejections(t *testing.T) {
	srv := newTestServer(t)
	fx := newExamSetup(t, srv, 0)
	other := testutil.CreateUser(t, srv.db, "ben", model.Student)

	w := srv.do(t, http.MethodPost, fmt.Sprintf("/api/exams/%d/start/", fx.exam.ID), "", fx.user)
	require.Equal(t, http.StatusCreated, w.Code)
	var started dto.StartAttemptResponse
	decode(t, w, &started)
	finishPath := fmt.Sprintf("/api/exam-attempts/%d/finish/", started.AttemptID)

	t.Run("someone else's attempt", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, finishPath, finishBody(t, fx.activities, 1), other)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("activity outside the exam", func(t *testing.T) {
		stray := testutil.CreateActivity(t, srv.db, testutil.ChoiceActivity(nil, 1))
		body := fmt.Sprintf(`{"answers":[{"activity_id":%d,"input_data":%s}]}`, stray.ID, testutil.ChoiceInput(stray, true))
		w := srv.do(t, http.MethodPost, finishPath, body, fx.user)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Detail string            `json:"detail"`
			Fields map[string]string `json:"fields"`
		}
		decode(t, w, &resp)
		assert.Contains(t, resp.Fields, "answers[0].activity_id")
	})

	t.Run("missing attempt", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/exam-attempts/9999/finish/", `{"answers":[]}`, fx.user)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCancelThenRegrade(t *testing.T) {
	srv := newTestServer(t)
	fx := newExamSetup(t, srv, 0)

	w := srv.do(t, http.MethodPost, fmt.Sprintf("/api/exams/%d/start/", fx.exam.ID), "", fx.user)
	require.Equal(t, http.StatusCreated, w.Code)
	var started dto.StartAttemptResponse
	decode(t, w, &started)

	w = srv.do(t, http.MethodPost, fmt.Sprintf("/api/exam-attempts/%d/cancel/", started.AttemptID), "", fx.user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cancelled dto.AttemptResultResponse
	decode(t, w, &cancelled)
	assert.Equal(t, model.AttemptCancelled, cancelled.Status)

	// 已取消的作答重新评分时原样返回
	teacher := testutil.CreateUser(t, srv.db, "tom", model.Teacher)
	w = srv.do(t, http.MethodPost, fmt.Sprintf("/api/admin/exam-attempts/%d/grade/", started.AttemptID), "", teacher)
	require.Equal(t, http.StatusOK, w.Code)
	var regraded dto.AttemptResultResponse
	decode(t, w, &regraded)
	assert.Equal(t, model.AttemptCancelled, regraded.Status)
}

func TestCourseExamsAndAttemptReview(t *testing.T) {
	srv := newTestServer(t)
	fx := newExamSetup(t, srv, 2)
	examsPath := fmt.Sprintf("/api/courses/%d/exams/", fx.exam.CourseID)

	w := srv.do(t, http.MethodGet, examsPath, "", fx.user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var listed []map[string]interface{}
	decode(t, w, &listed)
	require.Len(t, listed, 1)
	assert.EqualValues(t, fx.exam.ID, listed[0]["id"])
	assert.EqualValues(t, fx.exam.CourseID, listed[0]["course"])
	assert.Equal(t, true, listed[0]["has_attempts_left"])
	assert.EqualValues(t, 2, listed[0]["remaining_attempts"])
	assert.Nil(t, listed[0]["user_percentage"])

	w = srv.do(t, http.MethodPost, fmt.Sprintf("/api/exams/%d/start/", fx.exam.ID), "", fx.user)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var started dto.StartAttemptResponse
	decode(t, w, &started)
	w = srv.do(t, http.MethodPost, fmt.Sprintf("/api/exam-attempts/%d/finish/", started.AttemptID), finishBody(t, fx.activities, 3), fx.user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.do(t, http.MethodGet, examsPath, "", fx.user)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &listed)
	assert.EqualValues(t, 1, listed[0]["remaining_attempts"])
	assert.InDelta(t, 75.0, listed[0]["user_percentage"], 0.001)
	assert.Equal(t, true, listed[0]["user_passed"])
	assert.NotNil(t, listed[0]["user_last_attempt_at"])

	reviewPath := fmt.Sprintf("/api/exam-attempts/%d/", started.AttemptID)
	w = srv.do(t, http.MethodGet, reviewPath, "", fx.user)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var review dto.AttemptReviewResponse
	decode(t, w, &review)
	assert.Equal(t, started.AttemptID, review.AttemptID)
	assert.Equal(t, "Quiz 1", review.ExamTitle)
	assert.Equal(t, model.AttemptGraded, review.Status)
	assert.EqualValues(t, 3, review.CorrectCount)
	assert.Nil(t, review.ExpiresAt)
	require.Len(t, review.Answers, 4)
	assert.True(t, review.Answers[0].IsCorrect)
	assert.False(t, review.Answers[3].IsCorrect)
	var stored struct {
		SelectedIDs []uint `json:"selected_ids"`
	}
	require.NoError(t, json.Unmarshal(review.Answers[0].ResponseData, &stored))
	assert.Len(t, stored.SelectedIDs, 1)

	other := testutil.CreateUser(t, srv.db, "ben", model.Student)
	w = srv.do(t, http.MethodGet, reviewPath, "", other)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodGet, "/api/courses/999/exams/", "", fx.user)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var missing map[string]string
	decode(t, w, &missing)
	assert.Equal(t, "Not found.", missing["detail"])
}
