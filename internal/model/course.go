package model

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// swagger:model Course
type Course struct {
	BaseModel
	Name        string     `gorm:"size:200;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Difficulty  Difficulty `gorm:"size:50;default:'medium'" json:"difficulty"`
	Modules     []Module   `gorm:"foreignKey:CourseID" json:"modules,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Module
type Module struct {
	BaseModel
	CourseID    uint       `gorm:"index;not null" json:"courseId"`
	Name        string     `gorm:"size:200;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Difficulty  Difficulty `gorm:"size:50;default:'medium'" json:"difficulty"`
	Position    int        `gorm:"default:0" json:"position"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

func (Module) TableName() string {
	return "modules"
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentInactive  EnrollmentStatus = "inactive"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment 学生选课记录，ProgressPercent 在答题提交后异步回写
type Enrollment struct {
	BaseModel
	StudentID       uint             `gorm:"uniqueIndex:uq_enrollment_student_course;not null" json:"studentId"`
	CourseID        uint             `gorm:"uniqueIndex:uq_enrollment_student_course;not null" json:"courseId"`
	Status          EnrollmentStatus `gorm:"size:20;default:'active';index" json:"status"`
	ProgressPercent float64          `gorm:"type:decimal(5,2);default:0" json:"progressPercent"`
	StartAt         *time.Time       `json:"startAt,omitempty"`
	EndAt           *time.Time       `json:"endAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// Vocabulary 学生个人词汇表，(student, word) 唯一
type Vocabulary struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID  uint       `gorm:"uniqueIndex:uq_vocab_student_word;not null" json:"studentId"`
	Word       string     `gorm:"size:100;uniqueIndex:uq_vocab_student_word;not null" json:"word"`
	Meaning    string     `gorm:"type:text" json:"meaning"`
	Difficulty Difficulty `gorm:"size:50;default:'medium'" json:"difficulty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (Vocabulary) TableName() string {
	return "vocabulary"
}
