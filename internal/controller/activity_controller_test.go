package controller

import (
	"apart_backend/internal/model"
	"apart_backend/internal/testutil"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAnswer(t *testing.T) {
	srv := newTestServer(t)
	user := testutil.CreateUser(t, srv.db, "ana", model.Student)
	activity := testutil.CreateActivity(t, srv.db, testutil.ChoiceActivity(nil, 2))
	path := fmt.Sprintf("/api/activities/%d/submit/", activity.ID)

	t.Run("correct answer", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, path, string(testutil.ChoiceInput(activity, true)), user)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, true, body["is_correct"])
		assert.EqualValues(t, activity.ID, body["activity_id"])
		assert.Nil(t, body["exam_attempt_id"])
		assert.NotNil(t, body["response_data"])
	})

	t.Run("wrapped in input_data", func(t *testing.T) {
		payload := fmt.Sprintf(`{"input_data": %s}`, testutil.ChoiceInput(activity, false))
		w := srv.do(t, http.MethodPost, path, payload, user)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, false, body["is_correct"])
	})

	t.Run("invalid input", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, path, `{}`, user)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		decode(t, w, &body)
		assert.NotEmpty(t, body.Error)
		assert.Contains(t, body.Fields, "selected_ids")
	})

	t.Run("unknown activity", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/activities/9999/submit/", `{"selected_ids":[1]}`, user)
		require.Equal(t, http.StatusNotFound, w.Code)

		var body map[string]string
		decode(t, w, &body)
		assert.Contains(t, body, "error")
	})

	t.Run("non numeric id", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/activities/abc/submit/", `{"selected_ids":[1]}`, user)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
