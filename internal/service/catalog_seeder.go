package service

import (
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/pkg/logger"
	"apart_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	seedDefaultAttempts = 1
	seedDefaultPassMark = 60
)

// SeedFile 课程目录的 JSON 格式。题目通过 key 被试卷引用，key 在整个文件内唯一。
type SeedFile struct {
	Courses     []SeedCourse     `json:"courses" validate:"dive"`
	Enrollments []SeedEnrollment `json:"enrollments" validate:"dive"`
}

type SeedCourse struct {
	Key         string           `json:"key" validate:"required"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Difficulty  model.Difficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Modules     []SeedModule     `json:"modules" validate:"dive"`
	Exams       []SeedExam       `json:"exams" validate:"dive"`
}

type SeedModule struct {
	Name        string         `json:"name" validate:"required"`
	Description string         `json:"description"`
	Position    int            `json:"position"`
	EndDate     *time.Time     `json:"end_date"`
	Activities  []SeedActivity `json:"activities" validate:"dive"`
}

type SeedChoice struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type SeedPair struct {
	Left         string `json:"left" validate:"required"`
	Right        string `json:"right" validate:"required"`
	IsVocabulary bool   `json:"is_vocabulary"`
}

// SeedActivity 只读取与 type 对应的载荷字段
type SeedActivity struct {
	Key          string             `json:"key" validate:"required"`
	Type         model.ActivityType `json:"type" validate:"required,oneof=choice fill_in matching order"`
	Title        string             `json:"title" validate:"required"`
	Instructions string             `json:"instructions"`
	Feedback     string             `json:"feedback"`
	Difficulty   model.Difficulty   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Points       uint               `json:"points"`

	IsMultiple bool              `json:"is_multiple"`
	Choices    []SeedChoice      `json:"choices" validate:"required_if=Type choice,dive"`
	Text       string            `json:"text" validate:"required_if=Type fill_in"`
	Answers    map[string]string `json:"answers" validate:"required_if=Type fill_in"`
	Pairs      []SeedPair        `json:"pairs" validate:"required_if=Type matching,dive"`
	Sentence   string            `json:"sentence" validate:"required_if=Type order"`
}

type SeedExam struct {
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Type        model.ExamType `json:"type" validate:"omitempty,oneof=MIDTERM FINAL QUIZ"`
	Published   bool           `json:"published"`
	// 省略时分别为 1 和 60；0 表示不限次数
	AttemptsAllowed  *uint              `json:"attempts_allowed"`
	PassMarkPercent  *uint              `json:"pass_mark_percent" validate:"omitempty,max=100"`
	TimeLimitMinutes *uint              `json:"time_limit_minutes"`
	Activities       []SeedExamActivity `json:"activities" validate:"dive"`
}

type SeedExamActivity struct {
	Key      string `json:"key" validate:"required"`
	Required *bool  `json:"required"`
}

type SeedEnrollment struct {
	Email  string `json:"email" validate:"required,email"`
	Course string `json:"course" validate:"required"`
}

type SeedSummary struct {
	Courses     int
	Modules     int
	Activities  int
	Exams       int
	Enrollments int
}

type CatalogSeeder struct {
	DB           *gorm.DB
	UserRepo     *repository.UserRepository
	StudentRepo  *repository.StudentRepository
	CourseRepo   *repository.CourseRepository
	ActivityRepo *repository.ActivityRepository
	ExamRepo     *repository.ExamRepository
	validate     *validator.Validate
}

func NewCatalogSeeder(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	studentRepo *repository.StudentRepository,
	courseRepo *repository.CourseRepository,
	activityRepo *repository.ActivityRepository,
	examRepo *repository.ExamRepository,
) *CatalogSeeder {
	return &CatalogSeeder{
		DB:           db,
		UserRepo:     userRepo,
		StudentRepo:  studentRepo,
		CourseRepo:   courseRepo,
		ActivityRepo: activityRepo,
		ExamRepo:     examRepo,
		validate:     validator.New(),
	}
}

// SeedFromFile 读取 JSON 文件并在一个事务里写入
func (s *CatalogSeeder) SeedFromFile(ctx context.Context, path string) (*SeedSummary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file SeedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("json parse: %w", err)
	}
	return s.Seed(ctx, &file)
}

func (s *CatalogSeeder) Seed(ctx context.Context, file *SeedFile) (*SeedSummary, error) {
	ctx, span := tracing.Start(ctx, "CatalogSeeder.Seed")
	defer span.End()

	if err := s.check(file); err != nil {
		return nil, err
	}

	summary := &SeedSummary{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		courseIDs := make(map[string]uint, len(file.Courses))
		for i := range file.Courses {
			id, err := s.seedCourse(ctx, tx, &file.Courses[i], summary)
			if err != nil {
				return fmt.Errorf("courses[%d]: %w", i, err)
			}
			courseIDs[file.Courses[i].Key] = id
		}
		for i, e := range file.Enrollments {
			if err := s.seedEnrollment(ctx, tx, e, courseIDs[e.Course]); err != nil {
				return fmt.Errorf("enrollments[%d]: %w", i, err)
			}
			summary.Enrollments++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info("catalog seeded",
		zap.Int("courses", summary.Courses),
		zap.Int("modules", summary.Modules),
		zap.Int("activities", summary.Activities),
		zap.Int("exams", summary.Exams),
		zap.Int("enrollments", summary.Enrollments),
	)
	return summary, nil
}

// check 字段校验之后再检查 key 的唯一性和引用
func (s *CatalogSeeder) check(file *SeedFile) error {
	if err := s.validate.Struct(file); err != nil {
		return err
	}

	courses := map[string]bool{}
	activities := map[string]bool{}
	var dups []string
	for _, c := range file.Courses {
		if courses[c.Key] {
			dups = append(dups, c.Key)
		}
		courses[c.Key] = true
		for _, m := range c.Modules {
			for _, a := range m.Activities {
				if activities[a.Key] {
					dups = append(dups, a.Key)
				}
				activities[a.Key] = true
			}
		}
	}
	if len(dups) > 0 {
		return fmt.Errorf("duplicate keys in seed file: %v", dups)
	}

	for _, c := range file.Courses {
		for _, e := range c.Exams {
			for _, ref := range e.Activities {
				if !activities[ref.Key] {
					return fmt.Errorf("exam %q references unknown activity %q", e.Title, ref.Key)
				}
			}
		}
	}
	for _, e := range file.Enrollments {
		if !courses[e.Course] {
			return fmt.Errorf("enrollment for %s references unknown course %q", e.Email, e.Course)
		}
	}
	return nil
}

func (s *CatalogSeeder) seedCourse(ctx context.Context, tx *gorm.DB, in *SeedCourse, summary *SeedSummary) (uint, error) {
	courses := s.CourseRepo.WithTx(tx)
	course := &model.Course{Name: in.Name, Description: in.Description, Difficulty: in.Difficulty}
	if err := courses.Create(ctx, course); err != nil {
		return 0, err
	}
	summary.Courses++

	activityIDs := map[string]uint{}
	for i, m := range in.Modules {
		module := &model.Module{
			CourseID:    course.ID,
			Name:        m.Name,
			Description: m.Description,
			Position:    m.Position,
			EndDate:     m.EndDate,
		}
		if module.Position == 0 {
			module.Position = i + 1
		}
		if err := courses.CreateModule(ctx, module); err != nil {
			return 0, err
		}
		summary.Modules++

		for _, a := range m.Activities {
			activity := buildActivity(module.ID, a)
			if err := s.ActivityRepo.WithTx(tx).Create(ctx, activity); err != nil {
				return 0, fmt.Errorf("activity %q: %w", a.Key, err)
			}
			activityIDs[a.Key] = activity.ID
			summary.Activities++
		}
	}

	exams := s.ExamRepo.WithTx(tx)
	for _, e := range in.Exams {
		exam := &model.Exam{
			CourseID:         course.ID,
			Type:             e.Type,
			Title:            e.Title,
			Description:      e.Description,
			IsPublished:      e.Published,
			TimeLimitMinutes: e.TimeLimitMinutes,
			AttemptsAllowed:  seedDefaultAttempts,
			PassMarkPercent:  seedDefaultPassMark,
		}
		if exam.Type == "" {
			exam.Type = model.ExamQuiz
		}
		if e.AttemptsAllowed != nil {
			exam.AttemptsAllowed = *e.AttemptsAllowed
		}
		if e.PassMarkPercent != nil {
			exam.PassMarkPercent = *e.PassMarkPercent
		}
		if err := exams.Create(ctx, exam); err != nil {
			return 0, err
		}
		for pos, ref := range e.Activities {
			activityID, ok := activityIDs[ref.Key]
			if !ok {
				return 0, fmt.Errorf("exam %q: activity %q belongs to another course", e.Title, ref.Key)
			}
			required := ref.Required == nil || *ref.Required
			err := exams.AddActivity(ctx, &model.ExamActivity{
				ExamID:     exam.ID,
				ActivityID: activityID,
				Required:   required,
				Position:   uint(pos + 1),
			})
			if err != nil {
				return 0, err
			}
		}
		summary.Exams++
	}
	return course.ID, nil
}

func buildActivity(moduleID uint, in SeedActivity) *model.Activity {
	info := model.ActivityInfo{
		ModuleID:     &moduleID,
		Title:        in.Title,
		Instructions: in.Instructions,
		Feedback:     in.Feedback,
		Difficulty:   in.Difficulty,
		Points:       in.Points,
	}
	switch in.Type {
	case model.ActivityChoice:
		choices := make([]model.Choice, 0, len(in.Choices))
		for _, c := range in.Choices {
			choices = append(choices, model.Choice{Text: c.Text, IsCorrect: c.IsCorrect})
		}
		return model.NewChoiceActivity(info, in.IsMultiple, choices...)
	case model.ActivityFillInBlank:
		return model.NewFillInTheBlankActivity(info, in.Text, in.Answers)
	case model.ActivityMatching:
		pairs := make([]model.MatchingPair, 0, len(in.Pairs))
		for _, p := range in.Pairs {
			pairs = append(pairs, model.MatchingPair{Left: p.Left, Right: p.Right, IsVocabulary: p.IsVocabulary})
		}
		return model.NewMatchingActivity(info, pairs...)
	default:
		return model.NewWordOrderingActivity(info, in.Sentence)
	}
}

func (s *CatalogSeeder) seedEnrollment(ctx context.Context, tx *gorm.DB, in SeedEnrollment, courseID uint) error {
	user, err := s.UserRepo.WithTx(tx).FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no user with email %s", in.Email)
		}
		return err
	}
	students := s.StudentRepo.WithTx(tx)
	student, err := students.FindByUserID(ctx, user.ID)
	if err != nil {
		return err
	}
	if student == nil {
		return fmt.Errorf("%s is not a student", in.Email)
	}
	return students.Enroll(ctx, &model.Enrollment{
		StudentID: student.ID,
		CourseID:  courseID,
		Status:    model.EnrollmentActive,
	})
}
