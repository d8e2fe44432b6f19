package dto

import (
	"apart_backend/internal/model"
	"encoding/json"
	"time"
)

type AnswerItem struct {
	ActivityID uint            `json:"activity_id" binding:"required"`
	InputData  json.RawMessage `json:"input_data"`
}

type FinishAttemptRequest struct {
	Answers []AnswerItem `json:"answers" binding:"dive"`
}

type StartAttemptResponse struct {
	AttemptID        uint                    `json:"attempt_id" copier:"ID"`
	AttemptNumber    uint                    `json:"attempt_number"`
	TimeLimitMinutes *uint                   `json:"time_limit_minutes"`
	Status           model.ExamAttemptStatus `json:"status"`
	StartedAt        time.Time               `json:"started_at"`
}

type AttemptResultResponse struct {
	AttemptID      uint                    `json:"attempt_id" copier:"ID"`
	ExamID         uint                    `json:"exam_id"`
	Status         model.ExamAttemptStatus `json:"status"`
	ScorePoints    uint                    `json:"score_points"`
	MaxPoints      uint                    `json:"max_points"`
	Percentage     float64                 `json:"percentage"`
	Passed         bool                    `json:"passed"`
	CorrectCount   uint                    `json:"correct_count"`
	TotalQuestions uint                    `json:"total_questions"`
	FinishedAt     *time.Time              `json:"finished_at"`
}

// CourseExamResponse 课程试卷列表项，user_* 字段描述当前用户的作答情况
type CourseExamResponse struct {
	ID               uint           `json:"id"`
	CourseID         uint           `json:"course"`
	Type             model.ExamType `json:"type"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	IsPublished      bool           `json:"is_published"`
	TimeLimitMinutes *uint          `json:"time_limit_minutes"`
	AttemptsAllowed  uint           `json:"attempts_allowed"`
	PassMarkPercent  uint           `json:"pass_mark_percent"`

	HasAttemptsLeft bool `json:"has_attempts_left" copier:"-"`
	// nil when attempts are unlimited
	RemainingAttempts *uint      `json:"remaining_attempts" copier:"-"`
	UserLastAttemptAt *time.Time `json:"user_last_attempt_at" copier:"-"`
	UserPercentage    *float64   `json:"user_percentage" copier:"-"`
	UserPassed        *bool      `json:"user_passed" copier:"-"`
}

// AttemptReviewResponse 单次作答的结果与已保存的答案
type AttemptReviewResponse struct {
	AttemptResultResponse
	ExamTitle     string               `json:"exam_title" copier:"-"`
	AttemptNumber uint                 `json:"attempt_number"`
	StartedAt     time.Time            `json:"started_at"`
	ExpiresAt     *time.Time           `json:"expires_at" copier:"-"`
	Answers       []UserAnswerResponse `json:"answers" copier:"-"`
}
