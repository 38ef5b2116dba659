package app

import (
	"answer_eval_backend/internal/config"
	"answer_eval_backend/internal/controller"
	"answer_eval_backend/internal/repository"
	"answer_eval_backend/internal/service"
	"answer_eval_backend/pkg/configwatcher"
	"answer_eval_backend/pkg/database"
	"answer_eval_backend/pkg/logger"
	"answer_eval_backend/pkg/monitoring"
	"answer_eval_backend/pkg/security"
	"answer_eval_backend/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	services *services
}

type repositories struct {
	evaluation *repository.EvaluationRepository
}

type services struct {
	grader     *service.GraderService
	evaluation *service.EvaluationService
	report     *service.ReportService
	batch      *service.BatchService
}

type controllers struct {
	evaluation *controller.EvaluationController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		evaluation: repository.NewEvaluationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) (*services, error) {
	s := &services{}

	s.grader = service.NewGraderService(cfg.AI, cfg.Evaluation.RequestTimeout())
	s.evaluation = service.NewEvaluationService(s.grader, cfg.Evaluation.ChunkSize)

	report, err := service.NewReportService(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.report = report

	lock := service.NewRedisRunLock(rdb, cfg.Evaluation.RunLockTTL())
	s.batch = service.NewBatchService(repos.evaluation, s.evaluation, s.report, lock, cfg.Evaluation.QuestionDelay())

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		evaluation: controller.NewEvaluationController(s.batch),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
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

// watchConfig pushes pacing changes to the running batch service without a
// restart; other settings still need one.
func (a *App) watchConfig() {
	go configwatcher.WatchConfig("configs/config.yaml", func(cfg *config.Config) {
		logger.Log.Info("config reloaded",
			zap.Duration("question_delay", cfg.Evaluation.QuestionDelay()))
		a.services.batch.SetQuestionDelay(cfg.Evaluation.QuestionDelay())
	})
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

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services
	controllers := app.initControllers(services, db)

	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("answer-evaluator", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers)

	app.watchConfig()

	return app
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
