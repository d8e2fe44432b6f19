package repository

import (
	"context"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

type moduleCount struct {
	ModuleID uint
	Total    int64
}

// ActivityCounts 每个模块下的题目数
func (r *ProgressRepository) ActivityCounts(ctx context.Context, moduleIDs []uint) (map[uint]uint, error) {
	out := make(map[uint]uint, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}
	var rows []moduleCount
	err := r.DB.WithContext(ctx).
		Table("activities").
		Select("module_id, COUNT(*) AS total").
		Where("module_id IN ? AND deleted_at IS NULL", moduleIDs).
		Group("module_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ModuleID] = uint(row.Total)
	}
	return out, nil
}

// CompletedCounts 每个模块下用户至少答对一次的题目数
func (r *ProgressRepository) CompletedCounts(ctx context.Context, userID uint, moduleIDs []uint) (map[uint]uint, error) {
	out := make(map[uint]uint, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return out, nil
	}
	var rows []moduleCount
	err := r.DB.WithContext(ctx).
		Table("user_answers").
		Select("activities.module_id AS module_id, COUNT(DISTINCT user_answers.activity_id) AS total").
		Joins("JOIN activities ON activities.id = user_answers.activity_id AND activities.deleted_at IS NULL").
		Where("user_answers.user_id = ? AND user_answers.is_correct = ?", userID, true).
		Where("activities.module_id IN ?", moduleIDs).
		Group("activities.module_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ModuleID] = uint(row.Total)
	}
	return out, nil
}
