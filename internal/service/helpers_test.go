package service

import (
	"apart_backend/internal/config"
	"apart_backend/internal/repository"
	"apart_backend/internal/testutil"
	"apart_backend/internal/validation"
	"testing"
	"time"

	"gorm.io/gorm"
)

type testServices struct {
	db          *gorm.DB
	answers     *AnswerSubmissionService
	grading     *ExamGradingService
	attempts    *ExamAttemptService
	exams       *ExamService
	leaderboard *LeaderboardService
	progress    *CourseProgressService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	db := testutil.NewDB(t)
	registry := validation.NewDefaultRegistry()

	activityRepo := repository.NewActivityRepository(db)
	answerRepo := repository.NewUserAnswerRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examRepo := repository.NewExamRepository(db)
	attemptRepo := repository.NewExamAttemptRepository(db)

	courseRepo := repository.NewCourseRepository(db)

	progress := NewCourseProgressService(courseRepo, repository.NewProgressRepository(db))
	answers := NewAnswerSubmissionService(db, registry, activityRepo, answerRepo, studentRepo, progress)
	grading := NewExamGradingService(db, examRepo, attemptRepo, answerRepo)

	return &testServices{
		db:          db,
		answers:     answers,
		grading:     grading,
		attempts:    NewExamAttemptService(db, examRepo, attemptRepo, answers, grading),
		exams:       NewExamService(courseRepo, examRepo, attemptRepo, registry),
		leaderboard: NewLeaderboardService(answerRepo, repository.NewUserRepository(db), 10, 100),
		progress:    progress,
	}
}

// setNow 固定所有服务的时钟
func (s *testServices) setNow(at time.Time) {
	now := func() time.Time { return at }
	s.answers.now = now
	s.grading.now = now
	s.attempts.now = now
	s.exams.now = now
	s.leaderboard.now = now
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		PasswordReset: config.PasswordResetConfig{
			ExpiryHours: 48,
			ResetURL:    "http://localhost:3000/reset-password",
		},
	}
}
