package app

import (
	"apart_backend/docs"
	"apart_backend/internal/config"
	"apart_backend/internal/middleware"
	"apart_backend/internal/model"
	"apart_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// @Router 注解里已带 /api 前缀
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerLearningRoutes(authGroup, c)

		// 教师/管理员
		staff := authGroup.Group("/admin")
		staff.Use(middleware.RoleMiddleware(model.Teacher))
		{
			staff.POST("/exam-attempts/:attempt_id/grade/", c.exam.RegradeAttempt)
		}
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/auth")
		{
			auth.POST("/register", c.auth.Register)
			auth.POST("/login", c.auth.Login)
			auth.POST("/password-reset", c.auth.RequestPasswordReset)
			auth.POST("/password-reset/confirm", c.auth.ConfirmPasswordReset)
		}
	}
}

func (a *App) registerLearningRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/auth/me", c.auth.Me)

	// 自由练习
	rg.POST("/activities/:activity_id/submit/", c.activity.SubmitAnswer)

	// 考试
	rg.POST("/exams/:exam_id/start/", c.exam.StartAttempt)
	rg.GET("/exams/:exam_id/activities/", c.exam.ListActivities)
	rg.GET("/courses/:course_id/exams/", c.exam.ListCourseExams)
	rg.GET("/exam-attempts/:attempt_id/", c.exam.GetAttempt)
	rg.POST("/exam-attempts/:attempt_id/finish/", c.exam.FinishAttempt)
	rg.POST("/exam-attempts/:attempt_id/cancel/", c.exam.CancelAttempt)

	// 统计
	rg.GET("/leaderboard/", c.leaderboard.GetLeaderboard)
	rg.GET("/courses/:course_id/progress/", c.course.GetProgress)
}
