package service

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/repository"
	"apart_backend/internal/util"
	"apart_backend/pkg/tracing"
	"context"
	"errors"

	"gorm.io/gorm"
)

type CourseProgressService struct {
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
}

func NewCourseProgressService(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository) *CourseProgressService {
	return &CourseProgressService{
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
	}
}

// Compute 每次实时计算，不做缓存
func (s *CourseProgressService) Compute(ctx context.Context, courseID, userID uint) (*dto.CourseProgressResponse, error) {
	ctx, span := tracing.Start(ctx, "CourseProgressService.Compute")
	defer span.End()

	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	modules, err := s.CourseRepo.ListModules(ctx, courseID)
	if err != nil {
		return nil, err
	}
	moduleIDs := make([]uint, 0, len(modules))
	for _, m := range modules {
		moduleIDs = append(moduleIDs, m.ID)
	}

	totals, err := s.ProgressRepo.ActivityCounts(ctx, moduleIDs)
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CompletedCounts(ctx, userID, moduleIDs)
	if err != nil {
		return nil, err
	}

	resp := &dto.CourseProgressResponse{
		Course:  dto.CourseRef{ID: course.ID, Name: course.Name},
		Modules: make([]dto.ModuleProgress, 0, len(modules)),
	}
	var overallTotal, overallDone uint
	for _, m := range modules {
		total, done := totals[m.ID], completed[m.ID]
		overallTotal += total
		overallDone += done
		resp.Modules = append(resp.Modules, dto.ModuleProgress{
			ID:            m.ID,
			Name:          m.Name,
			ProgressStats: progressStats(total, done),
		})
	}
	resp.Overall = progressStats(overallTotal, overallDone)
	return resp, nil
}

func progressStats(total, completed uint) dto.ProgressStats {
	remaining := uint(0)
	if total > completed {
		remaining = total - completed
	}
	return dto.ProgressStats{
		Total:     total,
		Completed: completed,
		Remaining: remaining,
		Percent:   util.Percent(completed, total),
	}
}
