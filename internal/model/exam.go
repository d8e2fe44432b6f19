package model

import "time"

type ExamType string

const (
	ExamMidterm ExamType = "MIDTERM"
	ExamFinal   ExamType = "FINAL"
	ExamQuiz    ExamType = "QUIZ"
)

// swagger:model Exam
type Exam struct {
	BaseModel
	CourseID    uint     `gorm:"index;not null" json:"courseId"`
	Type        ExamType `gorm:"size:20;default:'QUIZ'" json:"type"`
	Title       string   `gorm:"size:200" json:"title"`
	Description string   `gorm:"type:text" json:"description"`
	IsPublished bool     `gorm:"default:false" json:"isPublished"`
	// nil means untimed
	TimeLimitMinutes *uint `json:"timeLimitMinutes"`
	// 0 means unlimited
	AttemptsAllowed uint `gorm:"not null" json:"attemptsAllowed"`
	PassMarkPercent uint `gorm:"not null" json:"passMarkPercent"`
}

func (Exam) TableName() string {
	return "exams"
}

// ExamActivity 试卷与题目的关联，(exam, activity) 唯一
type ExamActivity struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ExamID     uint      `gorm:"uniqueIndex:uq_exam_activity;not null" json:"examId"`
	ActivityID uint      `gorm:"uniqueIndex:uq_exam_activity;not null" json:"activityId"`
	Activity   *Activity `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
	Required   bool      `gorm:"not null" json:"required"`
	Position   uint      `gorm:"default:0" json:"position"`
}

func (ExamActivity) TableName() string {
	return "exam_activities"
}

type ExamAttemptStatus string

const (
	AttemptInProgress ExamAttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  ExamAttemptStatus = "SUBMITTED"
	AttemptGraded     ExamAttemptStatus = "GRADED"
	AttemptExpired    ExamAttemptStatus = "EXPIRED"
	AttemptCancelled  ExamAttemptStatus = "CANCELLED"
)

// ConsumingStatuses 计入可用次数的状态
var ConsumingStatuses = []ExamAttemptStatus{
	AttemptGraded,
	AttemptExpired,
	AttemptCancelled,
	AttemptSubmitted,
}

func (s ExamAttemptStatus) Consumes() bool {
	for _, c := range ConsumingStatuses {
		if s == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave this status.
func (s ExamAttemptStatus) IsTerminal() bool {
	return s == AttemptGraded || s == AttemptCancelled
}

// swagger:model ExamAttempt
type ExamAttempt struct {
	ID            uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	ExamID        uint              `gorm:"uniqueIndex:uq_attempt_exam_user_number;index:idx_attempt_exam_user_status;not null" json:"examId"`
	Exam          *Exam             `gorm:"foreignKey:ExamID" json:"-"`
	UserID        uint              `gorm:"uniqueIndex:uq_attempt_exam_user_number;index:idx_attempt_exam_user_status;not null" json:"userId"`
	AttemptNumber uint              `gorm:"uniqueIndex:uq_attempt_exam_user_number;not null;default:1" json:"attemptNumber"`
	Status        ExamAttemptStatus `gorm:"size:20;index:idx_attempt_exam_user_status;default:'IN_PROGRESS'" json:"status"`
	// snapshot of the exam limit when the attempt was created
	TimeLimitMinutes *uint      `json:"timeLimitMinutes"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt"`

	ScorePoints    uint       `gorm:"default:0" json:"scorePoints"`
	MaxPoints      uint       `gorm:"default:0" json:"maxPoints"`
	CorrectCount   uint       `gorm:"default:0" json:"correctCount"`
	TotalQuestions uint       `gorm:"default:0" json:"totalQuestions"`
	Percentage     float64    `gorm:"type:decimal(5,2);default:0" json:"percentage"`
	Passed         bool       `gorm:"default:false" json:"passed"`
	GradedAt       *time.Time `json:"gradedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

// EffectiveTimeLimit prefers the attempt snapshot and falls back to the exam's
// current limit. Zero means untimed.
func (a *ExamAttempt) EffectiveTimeLimit(examLimit *uint) uint {
	if a.TimeLimitMinutes != nil && *a.TimeLimitMinutes > 0 {
		return *a.TimeLimitMinutes
	}
	if examLimit != nil {
		return *examLimit
	}
	return 0
}

// ExpiresAt returns the deadline of the attempt, ok=false when untimed.
func (a *ExamAttempt) ExpiresAt(examLimit *uint) (time.Time, bool) {
	limit := a.EffectiveTimeLimit(examLimit)
	if limit == 0 {
		return time.Time{}, false
	}
	return a.StartedAt.Add(time.Duration(limit) * time.Minute), true
}

func (a *ExamAttempt) IsExpired(examLimit *uint, now time.Time) bool {
	exp, ok := a.ExpiresAt(examLimit)
	return ok && now.After(exp)
}
