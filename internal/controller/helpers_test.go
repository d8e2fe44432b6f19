package controller

import (
	"apart_backend/internal/config"
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/internal/service"
	"apart_backend/internal/testutil"
	"apart_backend/internal/util"
	"apart_backend/internal/validation"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	db     *gorm.DB
	engine *gin.Engine
}

// fakeAuth 测试里用 X-User-ID 头代替 JWT
func fakeAuth(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.GetHeader("X-User-ID"), 10, 64)
		if err == nil {
			var user model.User
			if db.First(&user, id).Error == nil {
				c.Set("user", &util.Claims{UserID: user.ID, Username: user.Username, Role: user.Role})
			}
		}
		c.Next()
	}
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	registry := validation.NewDefaultRegistry()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	answerRepo := repository.NewUserAnswerRepository(db)
	examRepo := repository.NewExamRepository(db)
	attemptRepo := repository.NewExamAttemptRepository(db)

	courseRepo := repository.NewCourseRepository(db)

	progress := service.NewCourseProgressService(courseRepo, repository.NewProgressRepository(db))
	answers := service.NewAnswerSubmissionService(db, registry, activityRepo, answerRepo, studentRepo, progress)
	grading := service.NewExamGradingService(db, examRepo, attemptRepo, answerRepo)
	attempts := service.NewExamAttemptService(db, examRepo, attemptRepo, answers, grading)
	exams := service.NewExamService(courseRepo, examRepo, attemptRepo, registry)
	leaderboard := service.NewLeaderboardService(answerRepo, userRepo, 10, 100)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}
	auth := service.NewAuthService(db, userRepo, studentRepo, nil, service.LogMailer{}, cfg)

	activityCtl := NewActivityController(answers)
	examCtl := NewExamController(attempts, exams, grading)
	leaderboardCtl := NewLeaderboardController(leaderboard)
	courseCtl := NewCourseController(progress)
	authCtl := NewAuthController(auth)

	r := gin.New()
	r.POST("/api/auth/register", authCtl.Register)
	r.POST("/api/auth/login", authCtl.Login)
	r.POST("/api/auth/password-reset/confirm", authCtl.ConfirmPasswordReset)

	api := r.Group("/api", fakeAuth(db))
	api.GET("/auth/me", authCtl.Me)
	api.POST("/activities/:activity_id/submit/", activityCtl.SubmitAnswer)
	api.POST("/exams/:exam_id/start/", examCtl.StartAttempt)
	api.GET("/exams/:exam_id/activities/", examCtl.ListActivities)
	api.GET("/courses/:course_id/exams/", examCtl.ListCourseExams)
	api.GET("/exam-attempts/:attempt_id/", examCtl.GetAttempt)
	api.POST("/exam-attempts/:attempt_id/finish/", examCtl.FinishAttempt)
	api.POST("/exam-attempts/:attempt_id/cancel/", examCtl.CancelAttempt)
	api.POST("/admin/exam-attempts/:attempt_id/grade/", examCtl.RegradeAttempt)
	api.GET("/leaderboard/", leaderboardCtl.GetLeaderboard)
	api.GET("/courses/:course_id/progress/", courseCtl.GetProgress)

	return &testServer{db: db, engine: r}
}

func (s *testServer) do(t *testing.T, method, path, body string, user *model.User) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("X-User-ID", strconv.FormatUint(uint64(user.ID), 10))
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
