package service

import (
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/internal/util"
	"apart_backend/internal/validation"
	"apart_backend/pkg/logger"
	"apart_backend/pkg/monitoring"
	"apart_backend/pkg/tracing"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Submission 一条待提交的作答
type Submission struct {
	ActivityID uint
	InputData  json.RawMessage
}

type AnswerSubmissionService struct {
	DB           *gorm.DB
	Registry     *validation.Registry
	ActivityRepo *repository.ActivityRepository
	AnswerRepo   *repository.UserAnswerRepository
	StudentRepo  *repository.StudentRepository
	Progress     *CourseProgressService
	now          func() time.Time
}

func NewAnswerSubmissionService(
	db *gorm.DB,
	registry *validation.Registry,
	activityRepo *repository.ActivityRepository,
	answerRepo *repository.UserAnswerRepository,
	studentRepo *repository.StudentRepository,
	progress *CourseProgressService,
) *AnswerSubmissionService {
	return &AnswerSubmissionService{
		DB:           db,
		Registry:     registry,
		ActivityRepo: activityRepo,
		AnswerRepo:   answerRepo,
		StudentRepo:  studentRepo,
		Progress:     progress,
		now:          time.Now,
	}
}

// Submit validates and stores a single free-practice answer.
func (s *AnswerSubmissionService) Submit(ctx context.Context, userID, activityID uint, raw json.RawMessage) (*model.UserAnswer, error) {
	ctx, span := tracing.Start(ctx, "AnswerSubmissionService.Submit")
	defer span.End()

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	answer, err := s.evaluate(userID, activity, raw, nil)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.AnswerRepo.WithTx(tx).Create(ctx, answer)
	})
	if err != nil {
		return nil, err
	}

	countAnswer(activity, answer)
	runAfterCommit(ctx, s.sideEffects(userID, activity))
	return answer, nil
}

// SubmitMany 全部成功或全部回滚；副作用在提交之后统一执行
func (s *AnswerSubmissionService) SubmitMany(ctx context.Context, userID uint, items []Submission, attemptID *uint) ([]*model.UserAnswer, error) {
	var answers []*model.UserAnswer
	var activities []*model.Activity

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		answers, activities, err = s.submitManyTx(ctx, tx, userID, items, attemptID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i, a := range answers {
		countAnswer(activities[i], a)
	}
	runAfterCommit(ctx, s.sideEffects(userID, activities...))
	return answers, nil
}

// submitManyTx persists the batch inside an existing transaction. Callers that
// own the transaction are responsible for running side effects after commit.
func (s *AnswerSubmissionService) submitManyTx(ctx context.Context, tx *gorm.DB, userID uint, items []Submission, attemptID *uint) ([]*model.UserAnswer, []*model.Activity, error) {
	ctx, span := tracing.Start(ctx, "AnswerSubmissionService.SubmitMany")
	defer span.End()

	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ActivityID)
	}
	found, err := s.ActivityRepo.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	answers := make([]*model.UserAnswer, 0, len(items))
	activities := make([]*model.Activity, 0, len(items))
	for i, it := range items {
		activity, ok := found[it.ActivityID]
		if !ok {
			return nil, nil, fmt.Errorf("answers[%d]: %w", i, util.ErrActivityNotFound)
		}
		answer, err := s.evaluate(userID, activity, it.InputData, attemptID)
		if err != nil {
			return nil, nil, prefixInputError(err, "answers["+strconv.Itoa(i)+"].input_data")
		}
		answers = append(answers, answer)
		activities = append(activities, activity)
	}

	if err := s.AnswerRepo.WithTx(tx).CreateBatch(ctx, answers); err != nil {
		return nil, nil, err
	}
	return answers, activities, nil
}

func (s *AnswerSubmissionService) loadActivity(ctx context.Context, id uint) (*model.Activity, error) {
	activity, err := s.ActivityRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrActivityNotFound
		}
		return nil, err
	}
	return activity, nil
}

// evaluate 解析输入并判定对错，不落库
func (s *AnswerSubmissionService) evaluate(userID uint, activity *model.Activity, raw json.RawMessage, attemptID *uint) (*model.UserAnswer, error) {
	input, correct, err := s.Registry.Check(activity, raw)
	if err != nil {
		if errors.Is(err, validation.ErrUnsupportedActivityType) {
			logger.Log.Error("activity type has no validation strategy",
				zap.Uint("activityId", activity.ID),
				zap.String("type", string(activity.Type)),
			)
		}
		return nil, err
	}
	data, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	return &model.UserAnswer{
		UserID:        userID,
		ActivityID:    activity.ID,
		ExamAttemptID: attemptID,
		ResponseData:  data,
		IsCorrect:     correct,
		AnsweredAt:    s.now(),
	}, nil
}

// sideEffects 词汇收集按题目逐条执行；进度同步合并成一条，每门课程只重算一次
func (s *AnswerSubmissionService) sideEffects(userID uint, activities ...*model.Activity) []SideEffect {
	var effects []SideEffect
	var moduleActivityIDs []uint
	for _, activity := range activities {
		activity := activity
		if activity.Type == model.ActivityMatching {
			effects = append(effects, SideEffect{
				Name: "vocabulary_capture",
				Run: func(ctx context.Context) error {
					return s.captureVocabulary(ctx, userID, activity)
				},
			})
		}
		if activity.ModuleID != nil {
			moduleActivityIDs = append(moduleActivityIDs, activity.ID)
		}
	}
	if len(moduleActivityIDs) > 0 {
		effects = append(effects, SideEffect{
			Name: "enrollment_progress",
			Run: func(ctx context.Context) error {
				return s.syncEnrollmentProgress(ctx, userID, moduleActivityIDs)
			},
		})
	}
	return effects
}

// captureVocabulary 匹配题中标记为词汇的配对写入学生词汇表，重复的 (student, word) 跳过
func (s *AnswerSubmissionService) captureVocabulary(ctx context.Context, userID uint, activity *model.Activity) error {
	if activity.Matching == nil {
		return nil
	}
	pairs := activity.Matching.VocabularyPairs()
	if len(pairs) == 0 {
		return nil
	}
	student, err := s.StudentRepo.FindByUserID(ctx, userID)
	if err != nil || student == nil {
		return err
	}
	for _, p := range pairs {
		_, err := s.StudentRepo.AddVocabulary(ctx, &model.Vocabulary{
			StudentID:  student.ID,
			Word:       p.Left,
			Meaning:    p.Right,
			Difficulty: activity.Difficulty,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AnswerSubmissionService) syncEnrollmentProgress(ctx context.Context, userID uint, activityIDs []uint) error {
	courseIDs, err := s.ActivityRepo.CourseIDsOf(ctx, activityIDs)
	if err != nil || len(courseIDs) == 0 {
		return err
	}
	student, err := s.StudentRepo.FindByUserID(ctx, userID)
	if err != nil || student == nil {
		return err
	}
	for _, courseID := range courseIDs {
		enrollment, err := s.StudentRepo.FindActiveEnrollment(ctx, student.ID, courseID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			continue
		}
		progress, err := s.Progress.Compute(ctx, courseID, userID)
		if err != nil {
			return err
		}
		if err := s.StudentRepo.UpdateProgress(ctx, enrollment.ID, progress.Overall.Percent); err != nil {
			return err
		}
	}
	return nil
}

func countAnswer(activity *model.Activity, answer *model.UserAnswer) {
	monitoring.AnswersSubmitted.WithLabelValues(string(activity.Type), strconv.FormatBool(answer.IsCorrect)).Inc()
}

// prefixInputError 批量提交时把字段路径挂到对应的下标下
func prefixInputError(err error, prefix string) error {
	ie, ok := validation.IsInputError(err)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(ie.Fields))
	for k, v := range ie.Fields {
		if k == "input_data" {
			fields[prefix] = v
			continue
		}
		fields[prefix+"."+k] = v
	}
	return &validation.InputError{Fields: fields}
}
