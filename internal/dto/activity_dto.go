package dto

import (
	"apart_backend/internal/model"
	"encoding/json"
	"time"
)

// SubmitAnswerRequest 单题提交的请求体，input_data 的结构由题型决定
type SubmitAnswerRequest struct {
	InputData json.RawMessage `json:"input_data"`
}

type UserAnswerResponse struct {
	ID            uint            `json:"id"`
	ActivityID    uint            `json:"activity_id"`
	ExamAttemptID *uint           `json:"exam_attempt_id"`
	IsCorrect     bool            `json:"is_correct"`
	ResponseData  json.RawMessage `json:"response_data"`
	AnsweredAt    time.Time       `json:"answered_at"`
}

type ActivityResponse struct {
	ID           uint                   `json:"id"`
	Type         model.ActivityType     `json:"type"`
	Title        string                 `json:"title"`
	Instructions string                 `json:"instructions"`
	Difficulty   model.Difficulty       `json:"difficulty"`
	Points       uint                   `json:"points"`
	CreatedAt    time.Time              `json:"created_at"`
	Payload      map[string]interface{} `json:"payload" copier:"-"`
}

type ExamActivityResponse struct {
	Activity ActivityResponse `json:"activity" copier:"-"`
	Required bool             `json:"required"`
	Position uint             `json:"position"`
}
