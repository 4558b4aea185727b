package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms_progress_backend/internal/config"
	"lms_progress_backend/internal/controller"
	"lms_progress_backend/internal/grading"
	"lms_progress_backend/internal/repository"
	"lms_progress_backend/internal/service"
	"lms_progress_backend/pkg/cache"
	"lms_progress_backend/pkg/configwatcher"
	"lms_progress_backend/pkg/database"
	"lms_progress_backend/pkg/logger"
	"lms_progress_backend/pkg/monitoring"
	"lms_progress_backend/pkg/security"
	"lms_progress_backend/pkg/tracing"

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
	configCallbacks []func(*config.Config)
}

type repositories struct {
	activities  *repository.ActivityLogRepository
	content     *repository.ContentRepository
	identity    *repository.IdentityRepository
	submissions *repository.SubmissionRepository
	answers     *repository.AnswerRepository
	grades      *repository.GradeRepository
}

type services struct {
	storage *service.StorageService
	events  service.EventSink
	courses *service.CourseProgressService
	lessons *service.LessonProgressService
	quizzes *service.QuizService
}

type controllers struct {
	progress *controller.ProgressController
	quiz     *controller.QuizController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	progressCache := cache.NewRedisCache(rdb, cfg.Progress.CacheTTL)
	activities := repository.NewActivityLogRepository(db, progressCache)
	answers := repository.NewAnswerRepository(activities)
	return &repositories{
		activities:  activities,
		content:     repository.NewContentRepository(db),
		identity:    repository.NewIdentityRepository(db),
		submissions: repository.NewSubmissionRepository(activities),
		answers:     answers,
		grades:      repository.NewGradeRepository(activities, answers),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.events = service.NewRedisEventSink(rdb, cfg.Progress.EventChannel)
	s.courses = service.NewCourseProgressService(repos.activities, repos.content, s.events)
	s.lessons = service.NewLessonProgressService(
		repos.activities,
		repos.content,
		repos.identity,
		repos.submissions,
		repos.answers,
		repos.grades,
		s.courses,
		s.events,
	)
	s.quizzes = service.NewQuizService(
		repos.content,
		repos.identity,
		repos.submissions,
		repos.answers,
		repos.grades,
		s.lessons,
		grading.NewDispatcher(),
		s.events,
	)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		progress: controller.NewProgressController(s.lessons, s.courses),
		quiz:     controller.NewQuizController(s.quizzes, s.storage),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	monitoring.Init()

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("lms-progress", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Warn("Failed to initialize tracing", zap.Error(err))
		}
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	a := &App{
		Config: cfg,
		Router: router,
		DB:     db,
		Redis:  rdb,
	}

	a.setupMiddlewares(router, cfg)

	repos := a.initRepositories(db, rdb, cfg)
	svcs := a.initServices(repos, cfg, rdb)
	ctrls := a.initControllers(svcs, db)
	a.registerRoutes(router, ctrls)

	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		updated, ok := newCfg.(*config.Config)
		if !ok {
			return
		}
		a.Config = updated
		for _, cb := range a.configCallbacks {
			cb(updated)
		}
		logger.Log.Info("Config reloaded")
	})

	return a
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server starting", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := a.Redis.Close(); err != nil {
		logger.Log.Error("Redis close failed", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
