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
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StartResult struct {
	Attempt *model.ExamAttempt
	// false when an existing in-progress attempt was handed back
	Created bool
}

type ExamAttemptService struct {
	DB          *gorm.DB
	ExamRepo    *repository.ExamRepository
	AttemptRepo *repository.ExamAttemptRepository
	Answers     *AnswerSubmissionService
	Grading     *ExamGradingService
	now         func() time.Time
}

func NewExamAttemptService(
	db *gorm.DB,
	examRepo *repository.ExamRepository,
	attemptRepo *repository.ExamAttemptRepository,
	answers *AnswerSubmissionService,
	grading *ExamGradingService,
) *ExamAttemptService {
	return &ExamAttemptService{
		DB:          db,
		ExamRepo:    examRepo,
		AttemptRepo: attemptRepo,
		Answers:     answers,
		Grading:     grading,
		now:         time.Now,
	}
}

// StartAttempt 开始或继续一次作答。试卷行和最新作答行加锁，
// 同一用户并发调用只会产生一条新记录。
func (s *ExamAttemptService) StartAttempt(ctx context.Context, examID, userID uint) (*StartResult, error) {
	ctx, span := tracing.Start(ctx, "ExamAttemptService.StartAttempt")
	defer span.End()

	var result *StartResult
	exhausted := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)

		exam, err := s.ExamRepo.WithTx(tx).LockByID(ctx, examID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrExamNotFound
			}
			return err
		}
		if !exam.IsPublished {
			return util.ErrExamNotFound
		}

		now := s.now()
		latest, err := attempts.LatestForUpdate(ctx, examID, userID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Status == model.AttemptInProgress {
			if !latest.IsExpired(exam.TimeLimitMinutes, now) {
				result = &StartResult{Attempt: latest, Created: false}
				return nil
			}
			expiredAt, _ := latest.ExpiresAt(exam.TimeLimitMinutes)
			if err := attempts.UpdateFields(ctx, latest.ID, map[string]interface{}{
				"status":      model.AttemptExpired,
				"finished_at": expiredAt,
			}); err != nil {
				return err
			}
			logger.Log.Info("exam attempt expired",
				zap.Uint("attemptId", latest.ID),
				zap.Time("expiredAt", expiredAt),
			)
		}

		if exam.AttemptsAllowed > 0 {
			used, err := attempts.CountConsuming(ctx, examID, userID)
			if err != nil {
				return err
			}
			if used >= int64(exam.AttemptsAllowed) {
				// 过期标记照常提交
				exhausted = true
				return nil
			}
		}

		last, err := attempts.MaxAttemptNumber(ctx, examID, userID)
		if err != nil {
			return err
		}
		attempt := &model.ExamAttempt{
			ExamID:           examID,
			UserID:           userID,
			AttemptNumber:    last + 1,
			Status:           model.AttemptInProgress,
			TimeLimitMinutes: copyUint(exam.TimeLimitMinutes),
			StartedAt:        now,
		}
		if err := attempts.Create(ctx, attempt); err != nil {
			return fmt.Errorf("create attempt %d: %w", attempt.AttemptNumber, err)
		}
		result = &StartResult{Attempt: attempt, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if exhausted {
		monitoring.AttemptsStarted.WithLabelValues("exhausted").Inc()
		return nil, util.ErrNoAttemptsRemaining
	}

	outcome := "resumed"
	if result.Created {
		outcome = "created"
	}
	monitoring.AttemptsStarted.WithLabelValues(outcome).Inc()
	return result, nil
}

// FinishAttempt 提交整张试卷并评分。所有答案先整体校验，任何一条不合法都不会落库。
func (s *ExamAttemptService) FinishAttempt(ctx context.Context, attemptID, userID uint, items []Submission) (*model.ExamAttempt, error) {
	ctx, span := tracing.Start(ctx, "ExamAttemptService.FinishAttempt")
	defer span.End()

	var graded *model.ExamAttempt
	var answered []*model.Activity
	var answers []*model.UserAnswer

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)
		attempt, err := s.lockOwned(ctx, attempts, attemptID, userID)
		if err != nil {
			return err
		}

		exam, err := s.ExamRepo.WithTx(tx).FindByID(ctx, attempt.ExamID)
		if err != nil {
			return err
		}
		ids, err := s.ExamRepo.WithTx(tx).ActivityIDs(ctx, exam.ID)
		if err != nil {
			return err
		}
		if err := checkExamAnswers(items, ids); err != nil {
			return err
		}

		answers, answered, err = s.Answers.submitManyTx(ctx, tx, userID, items, &attempt.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if attempt.IsExpired(exam.TimeLimitMinutes, now) {
			finishedAt := now
			if attempt.FinishedAt != nil {
				finishedAt = *attempt.FinishedAt
			}
			if err := attempts.UpdateFields(ctx, attempt.ID, map[string]interface{}{
				"status":      model.AttemptExpired,
				"finished_at": finishedAt,
			}); err != nil {
				return err
			}
		}

		graded, err = s.Grading.gradeTx(ctx, tx, attempt.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for i, a := range answers {
		countAnswer(answered[i], a)
	}
	runAfterCommit(ctx, s.Answers.sideEffects(userID, answered...))
	return graded, nil
}

// CancelAttempt 放弃进行中的作答，同样占用一次机会
func (s *ExamAttemptService) CancelAttempt(ctx context.Context, attemptID, userID uint) (*model.ExamAttempt, error) {
	ctx, span := tracing.Start(ctx, "ExamAttemptService.CancelAttempt")
	defer span.End()

	var cancelled *model.ExamAttempt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempts := s.AttemptRepo.WithTx(tx)
		attempt, err := s.lockOwned(ctx, attempts, attemptID, userID)
		if err != nil {
			return err
		}
		now := s.now()
		attempt.Status = model.AttemptCancelled
		attempt.FinishedAt = &now
		cancelled = attempt
		return attempts.UpdateFields(ctx, attempt.ID, map[string]interface{}{
			"status":      attempt.Status,
			"finished_at": attempt.FinishedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// lockOwned 加锁读取作答，并要求属于 userID 且仍在进行中
type AttemptReview struct {
	Attempt   *model.ExamAttempt
	ExpiresAt *time.Time
	Answers   []model.UserAnswer
}

// GetAttempt 读取自己的一次作答及其答案，只读不加锁
func (s *ExamAttemptService) GetAttempt(ctx context.Context, attemptID, userID uint) (*AttemptReview, error) {
	ctx, span := tracing.Start(ctx, "ExamAttemptService.GetAttempt")
	defer span.End()

	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}

	review := &AttemptReview{Attempt: attempt}
	var examLimit *uint
	if attempt.Exam != nil {
		examLimit = attempt.Exam.TimeLimitMinutes
	}
	if exp, ok := attempt.ExpiresAt(examLimit); ok {
		review.ExpiresAt = &exp
	}
	review.Answers, err = s.Answers.AnswerRepo.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ExamAttemptService) lockOwned(ctx context.Context, attempts *repository.ExamAttemptRepository, attemptID, userID uint) (*model.ExamAttempt, error) {
	attempt, err := attempts.LockByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Status != model.AttemptInProgress {
		return nil, util.ErrAttemptNotInProgress
	}
	return attempt, nil
}

func checkExamAnswers(items []Submission, examActivityIDs []uint) error {
	inExam := make(map[uint]struct{}, len(examActivityIDs))
	for _, id := range examActivityIDs {
		inExam[id] = struct{}{}
	}
	seen := make(map[uint]struct{}, len(items))
	fields := make(map[string]string)
	for i, it := range items {
		key := fmt.Sprintf("answers[%d].activity_id", i)
		if _, ok := inExam[it.ActivityID]; !ok {
			fields[key] = fmt.Sprintf("activity %d does not belong to this exam", it.ActivityID)
			continue
		}
		if _, dup := seen[it.ActivityID]; dup {
			fields[key] = fmt.Sprintf("duplicate activity_id %d", it.ActivityID)
			continue
		}
		seen[it.ActivityID] = struct{}{}
	}
	if len(fields) > 0 {
		return &validation.InputError{Fields: fields}
	}
	return nil
}

func copyUint(v *uint) *uint {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
