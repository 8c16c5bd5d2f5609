package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"proctorx_backend/internal/config"
	"proctorx_backend/internal/controller"
	"proctorx_backend/internal/repository"
	"proctorx_backend/internal/service"
	"proctorx_backend/pkg/database"
	"proctorx_backend/pkg/logger"
	"proctorx_backend/pkg/monitoring"
	"proctorx_backend/pkg/security"
	"proctorx_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user       *repository.UserRepository
	test       *repository.TestRepository
	submission *repository.SubmissionRepository
}

type services struct {
	access     *service.AccessService
	auth       *service.AuthService
	user       *service.UserService
	storage    *service.StorageService
	grading    *service.GradingService
	similarity *service.SimilarityService
	test       *service.TestService
	submission *service.SubmissionService
	analytics  *service.AnalyticsService
	rateLimit  *service.RateLimitService
	proctorHub *service.ProctorHub
}

type controllers struct {
	auth       *controller.AuthController
	user       *controller.UserController
	test       *controller.TestController
	submission *controller.SubmissionController
	analytics  *controller.AnalyticsController
	proctor    *controller.ProctorController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热更新入口，通知所有已注册的回调
func (a *App) ApplyConfig(cfg *config.Config) {
	a.Config = cfg
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
	logger.Log.Info("configuration reloaded")
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		test:       repository.NewTestRepository(db),
		submission: repository.NewSubmissionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.access = service.NewAccessService()
	s.storage = service.NewStorageService(cfg)
	s.grading = service.NewGradingService(&cfg.Grading)
	s.similarity = service.NewSimilarityService(&cfg.Similarity)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)

	s.proctorHub = service.NewProctorHub(rdb)
	go s.proctorHub.Run()

	s.test = service.NewTestService(repos.test, repos.submission, s.access)
	s.submission = service.NewSubmissionService(
		repos.submission,
		repos.test,
		s.access,
		s.grading,
		s.similarity,
		s.storage,
		s.proctorHub,
		cfg,
	)
	s.analytics = service.NewAnalyticsService(repos.test, repos.submission, s.access)
	s.rateLimit = service.NewRateLimitService(rdb, cfg.RateLimit.PublicMaxRequests, cfg.RateLimit.PublicWindowSecs)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		user:       controller.NewUserController(s.user),
		test:       controller.NewTestController(s.test),
		submission: controller.NewSubmissionController(s.submission),
		analytics:  controller.NewAnalyticsController(s.analytics),
		proctor:    controller.NewProctorController(s.proctorHub),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		_, err := tracing.InitTracer("proctorx", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 先断开监考面板连接
	if a.services != nil && a.services.proctorHub != nil {
		a.services.proctorHub.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
