package repository

import (
	"apart_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type UserAnswerRepository struct {
	DB *gorm.DB
}

func NewUserAnswerRepository(db *gorm.DB) *UserAnswerRepository {
	return &UserAnswerRepository{DB: db}
}

func (r *UserAnswerRepository) WithTx(tx *gorm.DB) *UserAnswerRepository {
	return &UserAnswerRepository{DB: tx}
}

func (r *UserAnswerRepository) Create(ctx context.Context, answer *model.UserAnswer) error {
	return r.DB.WithContext(ctx).Create(answer).Error
}

func (r *UserAnswerRepository) CreateBatch(ctx context.Context, answers []*model.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(answers).Error
}

func (r *UserAnswerRepository) ListByAttempt(ctx context.Context, attemptID uint) ([]model.UserAnswer, error) {
	var answers []model.UserAnswer
	err := r.DB.WithContext(ctx).
		Where("exam_attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error
	return answers, err
}

// AnsweredActivityIDs 用户在模块内作答过的题目（无论对错）
func (r *UserAnswerRepository) AnsweredActivityIDs(ctx context.Context, userID, moduleID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Table("user_answers").
		Joins("JOIN activities ON activities.id = user_answers.activity_id").
		Where("user_answers.user_id = ? AND activities.module_id = ?", userID, moduleID).
		Distinct().
		Pluck("user_answers.activity_id", &ids).Error
	return ids, err
}

type AttemptScore struct {
	CorrectCount uint
	ScorePoints  uint
}

// AttemptScore 统计本次作答中答对的去重题目数及其分值之和
func (r *UserAnswerRepository) AttemptScore(ctx context.Context, attemptID, examID uint) (AttemptScore, error) {
	correct := r.DB.
		Table("user_answers").
		Select("DISTINCT user_answers.activity_id").
		Where("user_answers.exam_attempt_id = ? AND user_answers.is_correct = ?", attemptID, true)

	var row struct {
		CorrectCount int64
		ScorePoints  int64
	}
	err := r.DB.WithContext(ctx).
		Table("exam_activities").
		Select("COUNT(*) AS correct_count, COALESCE(SUM(activities.points), 0) AS score_points").
		Joins("JOIN activities ON activities.id = exam_activities.activity_id").
		Where("exam_activities.exam_id = ? AND activities.deleted_at IS NULL", examID).
		Where("exam_activities.activity_id IN (?)", correct).
		Scan(&row).Error
	if err != nil {
		return AttemptScore{}, err
	}
	return AttemptScore{CorrectCount: uint(row.CorrectCount), ScorePoints: uint(row.ScorePoints)}, nil
}

type LeaderboardFilter struct {
	Since    *time.Time
	ModuleID *uint
}

type LeaderboardRow struct {
	UserID          uint
	TotalPoints     uint
	ActivitiesCount uint
}

// LeaderboardRows aggregates correct answers per user, counting each
// (user, activity) once, ordered by total_points desc then user_id asc.
func (r *UserAnswerRepository) LeaderboardRows(ctx context.Context, f LeaderboardFilter) ([]LeaderboardRow, error) {
	distinct := r.DB.
		Table("user_answers").
		Select("DISTINCT user_answers.user_id, user_answers.activity_id, activities.points").
		Joins("JOIN activities ON activities.id = user_answers.activity_id AND activities.deleted_at IS NULL").
		Where("user_answers.is_correct = ?", true)
	if f.Since != nil {
		distinct = distinct.Where("user_answers.answered_at >= ?", *f.Since)
	}
	if f.ModuleID != nil {
		distinct = distinct.Where("activities.module_id = ?", *f.ModuleID)
	}

	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).
		Table("(?) AS scored", distinct).
		Select("scored.user_id AS user_id, SUM(scored.points) AS total_points, COUNT(*) AS activities_count").
		Group("scored.user_id").
		Order("total_points DESC, user_id ASC").
		Scan(&rows).Error
	return rows, err
}
