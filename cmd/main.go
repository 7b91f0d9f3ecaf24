package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"library-service/internal/config"
	"library-service/internal/database"
	"library-service/internal/handlers"
	"library-service/internal/jobs"
	"library-service/internal/logger"
	"library-service/internal/notification"
	"library-service/internal/repositories"
	"library-service/internal/services"
	"library-service/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional; environment variables override it)")
	runOnce := flag.String("run-once", "", "run the named job immediately and exit (e.g. \"borrowings list\")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.Database.URL, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	})
	if err != nil {
		logger.Error("Failed to connect database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if *cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Notifications
	var sender notification.Sender
	if cfg.Telegram.BotToken != "" {
		sender = notification.NewTelegramSender(cfg.Telegram.APIBaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.TelegramTimeout())
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, notifications are only logged")
		sender = notification.NewLogSender()
	}
	dispatcher := notification.NewDispatcher(sender, cfg.Notification.Workers, cfg.Notification.QueueSize)
	// Workers outlive the signal context so Stop can drain the queue.
	dispatcher.Start(context.WithoutCancel(ctx))

	// Repositories and services
	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	borrowingRepo := repositories.NewBorrowingRepository(db)
	jobRepo := repositories.NewScheduledJobRepository(db)

	media, err := storage.NewMedia(cfg.Media.Dir, cfg.Media.URLPrefix)
	if err != nil {
		logger.Error("Failed to prepare media directory", "error", err)
		os.Exit(1)
	}

	loc := cfg.Location()
	opts := []services.Option{
		services.WithClock(func() time.Time { return time.Now().In(loc) }),
		services.WithPageSize(cfg.Pagination.PageSize),
	}
	catalogService := services.NewCatalogService(db, bookRepo, media, cfg.Media.MaxUploadMB<<20, opts...)
	borrowingService := services.NewBorrowingService(db, bookRepo, borrowingRepo, dispatcher, opts...)

	// Jobs
	registry := jobs.NewRegistry(jobRepo, jobs.Definition{
		Name:     jobs.OverdueSweepJob,
		Schedule: cfg.Scheduler.OverdueSweep,
	})
	if err := registry.Ensure(ctx); err != nil {
		logger.Error("Failed to register jobs", "error", err)
		os.Exit(1)
	}
	runner := jobs.NewRunner(jobRepo, borrowingService, dispatcher)

	if *runOnce != "" {
		err := runner.RunNow(ctx, *runOnce)
		dispatcher.Stop()
		if err != nil {
			logger.Error("Job failed", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		return
	}

	scheduler := jobs.NewScheduler(runner, jobRepo, loc)
	if err := scheduler.Load(ctx); err != nil {
		logger.Error("Failed to schedule jobs", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.Media.MaxUploadMB << 20

	handlers.RegisterRoutes(router, handlers.Deps{
		Catalog:   catalogService,
		Borrowing: borrowingService,
		Users:     userRepo,
		Media:     media,
		JWTSecret: cfg.JWT.Secret,
		Ping:      pinger(db),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
	}

	go func() {
		logger.Info("Starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	scheduler.Stop()
	dispatcher.Stop()
	logger.Info("Shutdown complete")
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
