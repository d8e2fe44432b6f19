package repository

import (
	"apart_backend/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) WithTx(tx *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: tx}
}

func (r *StudentRepository) Create(ctx context.Context, student *model.StudentProfile) error {
	return r.DB.WithContext(ctx).Create(student).Error
}

// FindByUserID 非学生用户返回 nil, nil
func (r *StudentRepository) FindByUserID(ctx context.Context, userID uint) (*model.StudentProfile, error) {
	var s model.StudentProfile
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Enroll 写入报名记录并把该课程设为学生当前课程；重复报名只更新当前课程
func (r *StudentRepository) Enroll(ctx context.Context, enrollment *model.Enrollment) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).Create(enrollment).Error
		if err != nil {
			return err
		}
		return tx.Model(&model.StudentProfile{}).
			Where("id = ?", enrollment.StudentID).
			Update("active_course_id", enrollment.CourseID).Error
	})
}

// StudentContact 通知用的学生联系方式
type StudentContact struct {
	StudentID uint
	UserID    uint
	Username  string
	Email     string
	FirstName string
}

// ListContactsByActiveCourse 当前课程为 courseID 的学生，按学生 id 排序
func (r *StudentRepository) ListContactsByActiveCourse(ctx context.Context, courseID uint) ([]StudentContact, error) {
	var rows []StudentContact
	err := r.DB.WithContext(ctx).
		Table("students").
		Select("students.id AS student_id, users.id AS user_id, users.username, users.email, users.first_name").
		Joins("JOIN users ON users.id = students.user_id AND users.deleted_at IS NULL").
		Where("students.active_course_id = ? AND students.deleted_at IS NULL", courseID).
		Order("students.id ASC").
		Scan(&rows).Error
	return rows, err
}

// FindActiveEnrollment returns nil when the student has no active enrollment in the course.
func (r *StudentRepository) FindActiveEnrollment(ctx context.Context, studentID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND status = ?", studentID, courseID, model.EnrollmentActive).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *StudentRepository) UpdateProgress(ctx context.Context, enrollmentID uint, percent float64) error {
	return r.DB.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("id = ?", enrollmentID).
		Update("progress_percent", percent).Error
}

// AddVocabulary 已存在 (student, word) 时静默跳过，返回是否新插入
func (r *StudentRepository) AddVocabulary(ctx context.Context, entry *model.Vocabulary) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "word"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *StudentRepository) ListVocabulary(ctx context.Context, studentID uint) ([]model.Vocabulary, error) {
	var words []model.Vocabulary
	err := r.DB.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("word ASC").
		Find(&words).Error
	return words, err
}
