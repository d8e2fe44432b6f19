// @title Apart 后端 API
// @version 1.0
// @description 语言学习平台的答题、考试与排行榜服务。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"apart_backend/internal/app"
	"apart_backend/internal/config"
	"apart_backend/internal/service"
	"apart_backend/pkg/logger"
	"context"
	"flag"
	"log"
)

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	configDir := flag.String("config", "configs", "配置文件目录")
	seedFile := flag.String("seed", "", "从 JSON 文件导入课程目录，完成后退出")
	notifyPending := flag.Bool("notify-pending", false, "给即将截止模块中有未完成题目的学生发提醒，完成后退出")
	days := flag.Int("days", service.DefaultPendingWindowDays, "notify-pending: 向后查看的天数")
	courseID := flag.Uint("course-id", 0, "notify-pending: 只处理该课程")
	moduleID := flag.Uint("module-id", 0, "notify-pending: 只处理该模块")
	dryRun := flag.Bool("dry-run", false, "notify-pending: 只打印不发送")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	// 一次性命令只需要数据库
	if *seedFile != "" || *notifyPending {
		runTask(cfg, *seedFile, service.PendingActivityOptions{
			Days:     *days,
			CourseID: *courseID,
			ModuleID: *moduleID,
			DryRun:   *dryRun,
		}, *notifyPending)
		return
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application.Run()
}

func runTask(cfg *config.Config, seedFile string, opts service.PendingActivityOptions, notify bool) {
	application := app.NewTaskApp(cfg)
	defer logger.Log.Sync()
	ctx := context.Background()

	if seedFile != "" {
		summary, err := application.Seed(ctx, seedFile)
		if err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
		log.Printf("导入完成: 课程 %d, 模块 %d, 题目 %d, 试卷 %d, 报名 %d",
			summary.Courses, summary.Modules, summary.Activities, summary.Exams, summary.Enrollments)
	}
	if notify {
		summary, err := application.NotifyPending(ctx, opts)
		if err != nil {
			log.Fatalf("Notify failed: %v", err)
		}
		if opts.DryRun {
			log.Printf("DRY-RUN 完成，未发送邮件，待发送 %d 封", summary.Notices)
		} else {
			log.Printf("完成，已发送 %d 封邮件", summary.Notices)
		}
	}
}
