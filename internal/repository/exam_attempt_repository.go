package repository

import (
	"apart_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamAttemptRepository struct {
	DB *gorm.DB
}

func NewExamAttemptRepository(db *gorm.DB) *ExamAttemptRepository {
	return &ExamAttemptRepository{DB: db}
}

func (r *ExamAttemptRepository) WithTx(tx *gorm.DB) *ExamAttemptRepository {
	return &ExamAttemptRepository{DB: tx}
}

func (r *ExamAttemptRepository) Create(ctx context.Context, attempt *model.ExamAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *ExamAttemptRepository) FindByID(ctx context.Context, id uint) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	if err := r.DB.WithContext(ctx).Preload("Exam").First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ExamAttemptRepository) LockByID(ctx context.Context, id uint) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LatestForUpdate 锁住用户在该试卷上最新的一次作答，没有时返回 nil
func (r *ExamAttemptRepository) LatestForUpdate(ctx context.Context, examID, userID uint) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Order("attempt_number DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindInProgress returns the user's live attempt on the exam, nil when there is none.
func (r *ExamAttemptRepository) FindInProgress(ctx context.Context, examID, userID uint) (*model.ExamAttempt, error) {
	var a model.ExamAttempt
	err := r.DB.WithContext(ctx).
		Where("exam_id = ? AND user_id = ? AND status = ?", examID, userID, model.AttemptInProgress).
		Order("attempt_number DESC").
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ExamAttemptRepository) CountConsuming(ctx context.Context, examID, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.ExamAttempt{}).
		Where("exam_id = ? AND user_id = ? AND status IN ?", examID, userID, model.ConsumingStatuses).
		Count(&count).Error
	return count, err
}

func (r *ExamAttemptRepository) MaxAttemptNumber(ctx context.Context, examID, userID uint) (uint, error) {
	var n uint
	err := r.DB.WithContext(ctx).
		Model(&model.ExamAttempt{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Scan(&n).Error
	return n, err
}

// UpdateFields writes only the given columns.
func (r *ExamAttemptRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.DB.WithContext(ctx).
		Model(&model.ExamAttempt{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *ExamAttemptRepository) ListByUser(ctx context.Context, examID, userID uint) ([]model.ExamAttempt, error) {
	var attempts []model.ExamAttempt
	err := r.DB.WithContext(ctx).
		Where("exam_id = ? AND user_id = ?", examID, userID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}
