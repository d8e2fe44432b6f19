package service

import (
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/internal/util"
	"apart_backend/pkg/logger"
	"apart_backend/pkg/monitoring"
	"apart_backend/pkg/tracing"
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ExamGradingService struct {
	DB          *gorm.DB
	ExamRepo    *repository.ExamRepository
	AttemptRepo *repository.ExamAttemptRepository
	AnswerRepo  *repository.UserAnswerRepository
	now         func() time.Time
}

func NewExamGradingService(
	db *gorm.DB,
	examRepo *repository.ExamRepository,
	attemptRepo *repository.ExamAttemptRepository,
	answerRepo *repository.UserAnswerRepository,
) *ExamGradingService {
	return &ExamGradingService{
		DB:          db,
		ExamRepo:    examRepo,
		AttemptRepo: attemptRepo,
		AnswerRepo:  answerRepo,
		now:         time.Now,
	}
}

// FinalizeAndGrade 计算并写入成绩。已 GRADED 或 CANCELLED 的作答原样返回；
// EXPIRED 的作答照常计分，但保留 EXPIRED 状态。
func (s *ExamGradingService) FinalizeAndGrade(ctx context.Context, attemptID uint) (*model.ExamAttempt, error) {
	var graded *model.ExamAttempt
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		graded, err = s.gradeTx(ctx, tx, attemptID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return graded, nil
}

func (s *ExamGradingService) gradeTx(ctx context.Context, tx *gorm.DB, attemptID uint) (*model.ExamAttempt, error) {
	ctx, span := tracing.Start(ctx, "ExamGradingService.FinalizeAndGrade")
	defer span.End()

	attempts := s.AttemptRepo.WithTx(tx)
	attempt, err := attempts.LockByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.Status.IsTerminal() {
		return attempt, nil
	}

	exam, err := s.ExamRepo.WithTx(tx).FindByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}
	totals, err := s.ExamRepo.WithTx(tx).Totals(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	score, err := s.AnswerRepo.WithTx(tx).AttemptScore(ctx, attempt.ID, exam.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt.TotalQuestions = totals.Questions
	attempt.MaxPoints = totals.MaxPoints
	attempt.ScorePoints = score.ScorePoints
	attempt.CorrectCount = score.CorrectCount
	attempt.Percentage = util.Percent(score.ScorePoints, totals.MaxPoints)
	attempt.Passed = attempt.Percentage >= float64(exam.PassMarkPercent)
	if attempt.FinishedAt == nil {
		attempt.FinishedAt = &now
	}
	attempt.GradedAt = &now
	if attempt.Status != model.AttemptExpired {
		attempt.Status = model.AttemptGraded
	}

	err = attempts.UpdateFields(ctx, attempt.ID, map[string]interface{}{
		"total_questions": attempt.TotalQuestions,
		"max_points":      attempt.MaxPoints,
		"score_points":    attempt.ScorePoints,
		"correct_count":   attempt.CorrectCount,
		"percentage":      attempt.Percentage,
		"passed":          attempt.Passed,
		"finished_at":     attempt.FinishedAt,
		"graded_at":       attempt.GradedAt,
		"status":          attempt.Status,
	})
	if err != nil {
		return nil, err
	}

	monitoring.AttemptsGraded.WithLabelValues(string(attempt.Status), strconv.FormatBool(attempt.Passed)).Inc()
	logger.Log.Info("exam attempt graded",
		zap.Uint("attemptId", attempt.ID),
		zap.Uint("examId", exam.ID),
		zap.String("status", string(attempt.Status)),
		zap.Float64("percentage", attempt.Percentage),
	)
	return attempt, nil
}
