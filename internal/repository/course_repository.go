package repository

import (
	"apart_backend/internal/model"
	"context"
	"time"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Create(course).Error
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	if err := r.DB.WithContext(ctx).First(&course, id).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) CreateModule(ctx context.Context, module *model.Module) error {
	return r.DB.WithContext(ctx).Create(module).Error
}

// ListModules 按 (position, id) 排序
func (r *CourseRepository) ListModules(ctx context.Context, courseID uint) ([]model.Module, error) {
	var modules []model.Module
	err := r.DB.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC, id ASC").
		Find(&modules).Error
	return modules, err
}

type ModuleFilter struct {
	From     time.Time
	Until    time.Time
	CourseID uint
	ModuleID uint
}

// ListModulesEndingBetween 截止时间落在 [From, Until] 内的模块；CourseID/ModuleID 为 0 表示不限
func (r *CourseRepository) ListModulesEndingBetween(ctx context.Context, f ModuleFilter) ([]model.Module, error) {
	q := r.DB.WithContext(ctx).Where("end_date BETWEEN ? AND ?", f.From, f.Until)
	if f.CourseID != 0 {
		q = q.Where("course_id = ?", f.CourseID)
	}
	if f.ModuleID != 0 {
		q = q.Where("id = ?", f.ModuleID)
	}
	var modules []model.Module
	err := q.Order("end_date ASC, id ASC").Find(&modules).Error
	return modules, err
}
