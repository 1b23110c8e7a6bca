package app

import (
	"context"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/controller"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/configwatcher"
	"learnhub_backend/pkg/database"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	limiter         *security.RateLimiter
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	cancel          context.CancelFunc
}

type repositories struct {
	user         *repository.UserRepository
	course       *repository.CourseRepository
	enrollment   *repository.EnrollmentRepository
	progress     *repository.ProgressRepository
	completion   *repository.CompletionRepository
	certificate  *repository.CertificateRepository
	achievement  *repository.AchievementRepository
	event        *repository.EventRepository
	resource     *repository.ResourceRepository
	topic        *repository.TopicRepository
	assessment   *repository.AssessmentRepository
	notification *repository.NotificationRepository
	consent      *repository.ConsentRepository
	outbox       *repository.OutboxRepository
}

type services struct {
	outbox       *service.OutboxWorker
	hub          *service.NotificationHub
	notification *service.NotificationService
	course       *service.CourseService
	completion   *service.CompletionService
	progress     *service.ProgressService
	certificate  *service.CertificateService
	achievement  *service.AchievementService
	event        *service.EventService
	resource     *service.ResourceService
	community    *service.CommunityService
	assessment   *service.AssessmentService
	consent      *service.ConsentService
}

type controllers struct {
	course       *controller.CourseController
	progress     *controller.ProgressController
	achievement  *controller.AchievementController
	event        *controller.EventController
	resource     *controller.ResourceController
	community    *controller.CommunityController
	assessment   *controller.AssessmentController
	notification *controller.NotificationController
	consent      *controller.ConsentController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		course:       repository.NewCourseRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		progress:     repository.NewProgressRepository(db),
		completion:   repository.NewCompletionRepository(db),
		certificate:  repository.NewCertificateRepository(db),
		achievement:  repository.NewAchievementRepository(db),
		event:        repository.NewEventRepository(db),
		resource:     repository.NewResourceRepository(db),
		topic:        repository.NewTopicRepository(db),
		assessment:   repository.NewAssessmentRepository(db),
		notification: repository.NewNotificationRepository(db),
		consent:      repository.NewConsentRepository(db),
		outbox:       repository.NewOutboxRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	protection, err := security.NewDataProtection(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, err
	}

	s.outbox = service.NewOutboxWorker(repos.outbox, cfg.Outbox)
	s.hub = service.NewNotificationHub(rdb)
	s.notification = service.NewNotificationService(repos.notification, s.hub)

	s.course = service.NewCourseService(db, repos.course, repos.enrollment, repos.progress)
	s.completion = service.NewCompletionService(repos.course, repos.completion, repos.outbox)
	s.progress = service.NewProgressService(db, repos.progress, repos.course, s.completion, s.outbox)
	s.certificate = service.NewCertificateService(repos.certificate, repos.course)
	s.achievement = service.NewAchievementService(db, repos.achievement, repos.user, repos.course, repos.completion)
	s.event = service.NewEventService(db, repos.event, repos.outbox, s.outbox)
	s.resource = service.NewResourceService(db, repos.resource, service.NewStorageProvider(&cfg.Storage))
	s.community = service.NewCommunityService(db, repos.topic, repos.outbox, s.outbox)
	s.assessment = service.NewAssessmentService(db, repos.assessment, repos.outbox, s.outbox)
	s.consent = service.NewConsentService(repos.consent, protection)

	// 课程完成后的异步任务
	s.outbox.Handle(model.OutboxCertificate, service.CertificateHandler(s.certificate))
	s.outbox.Handle(model.OutboxAchievement, service.AchievementHandler(s.achievement))
	s.outbox.Handle(model.OutboxNotification, service.NotificationHandler(s.notification))

	return s, nil
}

func (a *App) initControllers(r *repositories, s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		course:       controller.NewCourseController(s.course, s.progress),
		progress:     controller.NewProgressController(s.progress, s.certificate),
		achievement:  controller.NewAchievementController(s.achievement),
		event:        controller.NewEventController(s.event),
		resource:     controller.NewResourceController(s.resource),
		community:    controller.NewCommunityController(s.community),
		assessment:   controller.NewAssessmentController(s.assessment),
		notification: controller.NewNotificationController(s.notification, s.hub),
		consent:      controller.NewConsentController(s.consent),
		health:       controller.NewHealthController(db, rdb, r.outbox),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// Build 在已有的数据库和 Redis 连接上组装路由与服务，不启动后台任务
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(repos, services, db, rdb)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == "debug" {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" && cfg.Storage.LocalPath != "" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
	})
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		services.outbox.UpdateConfig(newCfg.Outbox)
	})

	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	gin.SetMode(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式下默认不自动迁移
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app, err := Build(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to build application", zap.Error(err))
	}

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("learnhub-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) startBackgroundTasks(ctx context.Context) {
	s := a.services

	go s.hub.Run(ctx)
	go s.outbox.Run(ctx)
	go a.limiter.Run(ctx.Done())

	a.scheduler = cron.New()
	if err := s.outbox.Schedule(a.scheduler); err != nil {
		logger.Log.Error("Failed to schedule outbox sweep", zap.Error(err))
	}
	if err := s.event.Schedule(a.scheduler); err != nil {
		logger.Log.Error("Failed to schedule event reminders", zap.Error(err))
	}
	a.scheduler.Start()

	err := configwatcher.Watch(ctx, "configs", func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config hot reload disabled", zap.Error(err))
	}
}

func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.startBackgroundTasks(ctx)

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	a.services.hub.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}

// RunPendingTasks 同步执行一次活动提醒扫描和 outbox 任务处理，供运维脚本使用
func (a *App) RunPendingTasks(ctx context.Context) (reminders int, processed int, err error) {
	reminders, err = a.services.event.SendReminders(ctx)
	if err != nil {
		return reminders, 0, err
	}
	processed, err = a.services.outbox.ProcessPending(ctx)
	return reminders, processed, err
}
