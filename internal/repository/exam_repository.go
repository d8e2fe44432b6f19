package repository

import (
	"apart_backend/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) WithTx(tx *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: tx}
}

func (r *ExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	return r.DB.WithContext(ctx).Create(exam).Error
}

func (r *ExamRepository) FindByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.DB.WithContext(ctx).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) FindPublishedByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	if err := r.DB.WithContext(ctx).Where("is_published = ?", true).First(&exam, id).Error; err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListPublishedByCourse 课程下已发布的试卷，按 id 排序
func (r *ExamRepository) ListPublishedByCourse(ctx context.Context, courseID uint) ([]model.Exam, error) {
	var exams []model.Exam
	err := r.DB.WithContext(ctx).
		Where("course_id = ? AND is_published = ?", courseID, true).
		Order("id ASC").
		Find(&exams).Error
	return exams, err
}

// LockByID 加行锁读取试卷，必须在事务内调用
func (r *ExamRepository) LockByID(ctx context.Context, id uint) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (r *ExamRepository) AddActivity(ctx context.Context, link *model.ExamActivity) error {
	return r.DB.WithContext(ctx).Create(link).Error
}

// ListActivities returns the exam's activities with payloads, ordered by (position, id).
func (r *ExamRepository) ListActivities(ctx context.Context, examID uint) ([]model.ExamActivity, error) {
	var links []model.ExamActivity
	err := withPayload(r.DB.WithContext(ctx).Preload("Activity"), "Activity.").
		Where("exam_id = ?", examID).
		Order("position ASC, id ASC").
		Find(&links).Error
	return links, err
}

func (r *ExamRepository) ActivityIDs(ctx context.Context, examID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.ExamActivity{}).
		Where("exam_id = ?", examID).
		Pluck("activity_id", &ids).Error
	return ids, err
}

type ExamTotals struct {
	Questions uint
	MaxPoints uint
}

// Totals counts the exam's activities and sums their points.
func (r *ExamRepository) Totals(ctx context.Context, examID uint) (ExamTotals, error) {
	var row struct {
		Questions int64
		MaxPoints int64
	}
	err := r.DB.WithContext(ctx).
		Table("exam_activities").
		Select("COUNT(*) AS questions, COALESCE(SUM(activities.points), 0) AS max_points").
		Joins("JOIN activities ON activities.id = exam_activities.activity_id").
		Where("exam_activities.exam_id = ? AND activities.deleted_at IS NULL", examID).
		Scan(&row).Error
	if err != nil {
		return ExamTotals{}, err
	}
	return ExamTotals{Questions: uint(row.Questions), MaxPoints: uint(row.MaxPoints)}, nil
}
