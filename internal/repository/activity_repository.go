package repository

import (
	"apart_backend/internal/model"
	"context"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: tx}
}

// withPayload 预加载所有类型的载荷表，只有与 Type 对应的那张会有数据。
// prefix 用于从关联方（如 "Activity."）发起预加载。
func withPayload(db *gorm.DB, prefix string) *gorm.DB {
	return db.
		Preload(prefix+"Choice.Choices", func(db *gorm.DB) *gorm.DB { return db.Order("choices.id ASC") }).
		Preload(prefix+"FillInTheBlank").
		Preload(prefix+"Matching.Pairs", func(db *gorm.DB) *gorm.DB { return db.Order("matching_pairs.id ASC") }).
		Preload(prefix+"WordOrdering")
}

// Create 连同载荷行一起写入
func (r *ActivityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return r.DB.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) FindByID(ctx context.Context, id uint) (*model.Activity, error) {
	var a model.Activity
	if err := withPayload(r.DB.WithContext(ctx), "").First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByIDs returns the activities keyed by id; missing ids are simply absent.
func (r *ActivityRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Activity, error) {
	out := make(map[uint]*model.Activity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var activities []model.Activity
	if err := withPayload(r.DB.WithContext(ctx), "").Where("id IN ?", ids).Find(&activities).Error; err != nil {
		return nil, err
	}
	for i := range activities {
		out[activities[i].ID] = &activities[i]
	}
	return out, nil
}

// CourseIDsOf returns the distinct courses owning the activities' modules.
// Activities that are not attached to a module contribute nothing.
func (r *ActivityRepository) CourseIDsOf(ctx context.Context, activityIDs []uint) ([]uint, error) {
	var courseIDs []uint
	if len(activityIDs) == 0 {
		return courseIDs, nil
	}
	err := r.DB.WithContext(ctx).
		Table("activities").
		Joins("JOIN modules ON modules.id = activities.module_id AND modules.deleted_at IS NULL").
		Where("activities.id IN ? AND activities.deleted_at IS NULL", activityIDs).
		Distinct().
		Order("modules.course_id ASC").
		Pluck("modules.course_id", &courseIDs).Error
	return courseIDs, err
}

// ListByModule 模块下的全部题目，按 id 排序
func (r *ActivityRepository) ListByModule(ctx context.Context, moduleID uint) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.DB.WithContext(ctx).Where("module_id = ?", moduleID).Order("id ASC").Find(&activities).Error
	return activities, err
}
