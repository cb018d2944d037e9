package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizbank-backend/config"
	"quizbank-backend/events"
	"quizbank-backend/handlers"
	"quizbank-backend/importer"
	"quizbank-backend/logger"
	"quizbank-backend/middleware"
	"quizbank-backend/observability"
	"quizbank-backend/repository"
	"quizbank-backend/service"
	"quizbank-backend/storage"
	"quizbank-backend/topics"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()
	if cfg.EnvFile == "" {
		appLog.Warn("No .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel := observability.InitOTel(ctx, appLog, observability.OtelConfig{
		ServiceName: "quizbank-backend",
		Environment: cfg.AppEnv,
		Version:     cfg.Version,
	})

	// Initialize topic tables
	tables, err := loadTopics(cfg.TopicsFile)
	if err != nil {
		appLog.Fatal("Failed to load topic tables", "error", err)
	}

	// Initialize storage
	storageCfg, err := storage.ConfigFromEnv()
	if err != nil {
		appLog.Fatal("Invalid storage configuration", "error", err)
	}
	fileStorage, err := storage.NewStorage(ctx, storageCfg)
	if err != nil {
		appLog.Fatal("Failed to initialize storage", "error", err)
	}
	appLog.Info("Storage initialized", "type", storageCfg.Type)

	// Initialize event publisher
	publisher := events.NewLogPublisher(appLog)
	if cfg.RedisAddr != "" {
		publisher, err = events.NewRedisPublisher(appLog, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			appLog.Fatal("Failed to initialize Redis publisher", "error", err)
		}
	}

	opts := []service.ImportServiceOption{
		service.WithClassifier(importer.NewClassifier(tables)),
		service.WithStorage(fileStorage),
		service.WithPublisher(publisher),
		service.WithLogger(appLog),
		service.WithImportConfig(cfg.Import),
	}
	var finder service.QuestionFinder

	// Initialize corpus store
	switch cfg.CorpusDriver {
	case config.DriverSQLite:
		store, err := repository.NewSQLiteQuestionStore(cfg.SQLitePath)
		if err != nil {
			appLog.Fatal("Failed to open SQLite corpus", "error", err, "path", cfg.SQLitePath)
		}
		defer store.Close()
		appLog.Info("SQLite corpus opened", "path", cfg.SQLitePath)

		finder = store
		opts = append(opts, service.WithQuestionStore(store))
	default:
		db, err := initPostgres(ctx, cfg.DatabaseURL, appLog)
		if err != nil {
			appLog.Fatal("Failed to initialize Postgres", "error", err)
		}
		defer db.Close()

		questionRepo := repository.NewQuestionRepository(db)
		finder = questionRepo
		opts = append(opts,
			service.WithQuestionStore(questionRepo),
			service.WithImportSessionRepository(repository.NewImportSessionRepository(db)),
			service.WithImportFileRepository(repository.NewImportFileRepository(db)),
		)
	}

	// Initialize services
	importService := service.NewImportService(opts...)
	blueprintService := service.NewBlueprintService(
		service.BlueprintWithFinder(finder),
		service.BlueprintWithTopics(tables),
	)

	// Initialize handlers
	routes := handlers.Routes{
		Imports: handlers.NewImportHandler(importService, cfg.Import.MaxUploadBytes),
		Files:   handlers.NewFileHandler(importService),
		Catalog: handlers.NewCatalogHandler(tables, blueprintService),
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("quizbank-backend"))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	if cfg.LogRequests {
		r.Use(middleware.RequestLogger(appLog))
	}
	r.MaxMultipartMemory = cfg.Import.MaxUploadBytes

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"active_sessions": importService.ActiveSessions(),
		})
	})

	// API routes
	api := r.Group("/api", middleware.RequireEditor(cfg.AuthJWTSecret, appLog))
	routes.Register(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLog.Info("Server starting", "port", cfg.Port, "corpus_driver", cfg.CorpusDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return importService.RunJanitor(gctx, time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		appLog.Info("Shutting down")
		err := srv.Shutdown(shutdownCtx)
		importService.Shutdown(shutdownCtx)
		if otelErr := shutdownOTel(shutdownCtx); otelErr != nil {
			appLog.Warn("OpenTelemetry shutdown failed", "error", otelErr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		appLog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func loadTopics(path string) (topics.Tables, error) {
	if path == "" {
		return topics.Default()
	}
	return topics.Load(path)
}

func initPostgres(ctx context.Context, connString string, appLog *logger.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if err := repository.ApplyPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	appLog.Info("Postgres connection established")
	return pool, nil
}
