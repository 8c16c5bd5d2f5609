package app

import (
	"proctorx_backend/docs"
	"proctorx_backend/internal/config"
	"proctorx_backend/internal/middleware"
	"proctorx_backend/internal/model"
	"proctorx_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Health)

	// 1. 公共路由（无需登录）
	public := router.Group("/api")
	{
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)

		// 访问码查卷是考试入口，考生拿到码时往往还没登录。
		// 匿名请求按来源IP限流
		public.GET("/access/:code", s.rateLimit.Middleware(), c.test.GetByAccessCode)
	}

	// 2. 登录后通用路由
	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(a.DB))
	{
		api.GET("/auth/me", c.auth.Me)
		api.PUT("/users/me", c.user.UpdateProfile)
	}

	// 3. 考生路由
	student := router.Group("/api")
	student.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Student), middleware.ActivityMiddleware(a.DB))
	{
		student.POST("/submissions/start", c.submission.Start)
		student.GET("/submissions/mine", c.submission.ListMine)
		student.PUT("/submissions/:id/answers", c.submission.SaveAnswer)
		student.POST("/submissions/:id/violations", s.rateLimit.Middleware(), c.submission.ReportViolation)
		student.POST("/submissions/:id/activity", s.rateLimit.Middleware(), c.submission.LogActivity)
		student.POST("/submissions/:id/screenshots", c.submission.UploadScreenshot)
		student.POST("/submissions/:id/recordings", c.submission.UploadRecording)
		student.POST("/submissions/:id/submit", c.submission.Submit)
	}

	// 提交详情考生与招聘方都要访问，资源级权限在服务内校验
	api.GET("/submissions/:id", c.submission.Get)

	// 4. 招聘方路由
	recruiter := router.Group("/api")
	recruiter.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Recruiter), middleware.ActivityMiddleware(a.DB))
	{
		recruiter.POST("/tests", c.test.Create)
		recruiter.GET("/tests", c.test.List)
		recruiter.GET("/tests/:id", c.test.Get)
		recruiter.PUT("/tests/:id", c.test.Update)
		recruiter.DELETE("/tests/:id", c.test.Delete)
		recruiter.POST("/tests/:id/publish", c.test.Publish)
		recruiter.POST("/tests/:id/archive", c.test.Archive)

		recruiter.GET("/tests/:id/submissions", c.submission.ListByTest)
		recruiter.GET("/tests/:id/analytics", c.analytics.TestAnalytics)

		recruiter.POST("/submissions/:id/review", c.submission.Review)
		recruiter.POST("/submissions/:id/disqualify", c.submission.Disqualify)

		recruiter.GET("/proctor/live", c.proctor.Live)
	}

	// 5. 管理端路由
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.List)
		admin.POST("/users/:id/activate", c.user.Activate)
		admin.POST("/users/:id/deactivate", c.user.Deactivate)
	}
}
