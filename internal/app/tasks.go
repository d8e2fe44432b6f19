package app

import (
	"apart_backend/internal/repository"
	"apart_backend/internal/service"
	"context"
)

// NotifyPending 给即将截止模块里还有未作答题目的学生发提醒
func (a *App) NotifyPending(ctx context.Context, opts service.PendingActivityOptions) (*service.NotifySummary, error) {
	notifier := service.NewPendingActivityNotifier(
		repository.NewCourseRepository(a.DB),
		repository.NewStudentRepository(a.DB),
		repository.NewActivityRepository(a.DB),
		repository.NewUserAnswerRepository(a.DB),
		service.LogMailer{},
	)
	return notifier.Run(ctx, opts)
}

// Seed 从 JSON 文件导入课程、模块、题目、试卷和报名
func (a *App) Seed(ctx context.Context, path string) (*service.SeedSummary, error) {
	seeder := service.NewCatalogSeeder(
		a.DB,
		repository.NewUserRepository(a.DB),
		repository.NewStudentRepository(a.DB),
		repository.NewCourseRepository(a.DB),
		repository.NewActivityRepository(a.DB),
		repository.NewExamRepository(a.DB),
	)
	return seeder.SeedFromFile(ctx, path)
}
