package app

import (
	"apart_backend/internal/config"
	"apart_backend/internal/controller"
	"apart_backend/internal/repository"
	"apart_backend/internal/service"
	"apart_backend/internal/validation"
	"apart_backend/pkg/configwatcher"
	"apart_backend/pkg/database"
	"apart_backend/pkg/logger"
	"apart_backend/pkg/monitoring"
	"apart_backend/pkg/security"
	"apart_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config      *config.Config
	Router      *gin.Engine
	DB          *gorm.DB
	Redis       *redis.Client
	RateLimiter *security.RateLimiter
	services    *services
	tracer      *sdktrace.TracerProvider

	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	student    *repository.StudentRepository
	course     *repository.CourseRepository
	activity   *repository.ActivityRepository
	exam       *repository.ExamRepository
	attempt    *repository.ExamAttemptRepository
	answer     *repository.UserAnswerRepository
	progress   *repository.ProgressRepository
	resetToken *repository.ResetTokenRepository
}

type services struct {
	auth        *service.AuthService
	answers     *service.AnswerSubmissionService
	grading     *service.ExamGradingService
	attempts    *service.ExamAttemptService
	exams       *service.ExamService
	leaderboard *service.LeaderboardService
	progress    *service.CourseProgressService
}

type controllers struct {
	auth        *controller.AuthController
	activity    *controller.ActivityController
	exam        *controller.ExamController
	leaderboard *controller.LeaderboardController
	course      *controller.CourseController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// applyConfig 把重新加载的配置分发给所有回调
func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		student:    repository.NewStudentRepository(db),
		course:     repository.NewCourseRepository(db),
		activity:   repository.NewActivityRepository(db),
		exam:       repository.NewExamRepository(db),
		attempt:    repository.NewExamAttemptRepository(db),
		answer:     repository.NewUserAnswerRepository(db),
		progress:   repository.NewProgressRepository(db),
		resetToken: repository.NewResetTokenRepository(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}
	registry := validation.NewDefaultRegistry()

	s.auth = service.NewAuthService(db, repos.user, repos.student, repos.resetToken, service.LogMailer{}, cfg)
	s.progress = service.NewCourseProgressService(repos.course, repos.progress)
	s.answers = service.NewAnswerSubmissionService(db, registry, repos.activity, repos.answer, repos.student, s.progress)
	s.grading = service.NewExamGradingService(db, repos.exam, repos.attempt, repos.answer)
	s.attempts = service.NewExamAttemptService(db, repos.exam, repos.attempt, s.answers, s.grading)
	s.exams = service.NewExamService(repos.course, repos.exam, repos.attempt, registry)
	s.leaderboard = service.NewLeaderboardService(repos.answer, repos.user, cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		activity:    controller.NewActivityController(s.answers),
		exam:        controller.NewExamController(s.attempts, s.exams, s.grading),
		leaderboard: controller.NewLeaderboardController(s.leaderboard),
		course:      controller.NewCourseController(s.progress),
		health:      controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.RateLimiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerConfigCallbacks() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.services.leaderboard.SetLimits(cfg.Leaderboard.DefaultLimit, cfg.Leaderboard.MaxLimit)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.RateLimiter.Update(cfg.RateLimit.MaxRequests, rateWindow(cfg))
	})
}

func rateWindow(cfg *config.Config) time.Duration {
	if cfg.RateLimit.WindowMinutes <= 0 {
		return time.Minute
	}
	return time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
}

// New 组装路由与业务对象，基础设施（数据库、缓存）由调用方提供
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config:      cfg,
		DB:          db,
		Redis:       rdb,
		RateLimiter: security.NewRateLimiter(cfg.RateLimit.MaxRequests, rateWindow(cfg)),
	}

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg, db)
	controllers := app.initControllers(app.services)
	app.registerConfigCallbacks()

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)
	return app
}

// NewTaskApp 只初始化日志和数据库，供迁移、导入、通知等一次性命令使用
func NewTaskApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")
	gin.SetMode(cfg.Server.Mode)

	// release 模式默认不自动迁移，需要 -migrate
	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}
	return &App{Config: cfg, DB: db}
}

func NewApp(cfg *config.Config) *App {
	base := NewTaskApp(cfg)
	defer logger.Log.Sync()
	if cfg.MigrateOnly {
		return base
	}
	db := base.DB

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	// 监控初始化
	monitoring.Init()

	app := New(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		if err := configwatcher.Watch(ctx, filepath.Join(a.Config.Dir, "config.yaml"), a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher stopped", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
