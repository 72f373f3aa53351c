package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/expo-access/internal/config"   // Internal config loader
	"github.com/iliyamo/expo-access/internal/database" // MySQL connection + schema
	"github.com/iliyamo/expo-access/internal/handler"
	"github.com/iliyamo/expo-access/internal/logger"
	"github.com/iliyamo/expo-access/internal/metrics"
	"github.com/iliyamo/expo-access/internal/middleware"
	"github.com/iliyamo/expo-access/internal/model"
	"github.com/iliyamo/expo-access/internal/notify"
	"github.com/iliyamo/expo-access/internal/queue"
	"github.com/iliyamo/expo-access/internal/repository"
	"github.com/iliyamo/expo-access/internal/router" // Internal router setup
	"github.com/iliyamo/expo-access/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "expo-access")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatal("mysql unavailable", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		n, err := database.Migrate(ctx, db)
		if err != nil {
			lg.Fatal("migrate failed", zap.Error(err))
		}
		lg.Info("schema applied", zap.Int("statements", n))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Fatal("redis unavailable")
	}
	defer rdb.Close()

	// Repositories
	qrRepo := repository.NewQRCodeRepo(db)
	exhibitorRepo := repository.NewExhibitorRepo(db)
	venueRepo := repository.NewVenueRepo(db)
	assignmentRepo := repository.NewBoothAssignmentRepo(db)
	leadRepo := repository.NewLeadRepo(db)
	sessionRepo := repository.NewSessionRepo(db)
	reportRepo := repository.NewReportRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	if err := ensureAdmin(ctx, userRepo, cfg, lg); err != nil {
		lg.Fatal("bootstrap admin", zap.Error(err))
	}

	// Change feed
	pub := queue.NewAMQPPublisher(cfg.AMQPURL, lg.Named("publisher"))
	defer pub.Close()

	hub := notify.NewHub(cfg.Notification.SubscriberBuffer)
	store := notify.NewStore(rdb, cfg.Notification.RedisPrefix, cfg.Notification.HistorySize)
	notifier := notify.NewNotifier(store, hub, notify.NewMailer(cfg.Mail, lg.Named("mail")),
		exhibitorRepo, cfg.Notification.AdminRecipient, lg.Named("notifier"))
	consumer := queue.NewConsumer(cfg.AMQPURL, notifier, lg.Named("consumer"))

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("change consumer stopped", zap.Error(err))
		}
	}()
	go metrics.CollectRuntime(ctx, 15*time.Second)

	// Services
	qrSvc := service.NewQRService(qrRepo, exhibitorRepo, pub, cfg.QR, lg.Named("qr"))
	boothSvc := service.NewBoothService(venueRepo, assignmentRepo, exhibitorRepo, cfg.Booth, lg.Named("booth"))
	leadSvc := service.NewLeadService(leadRepo, exhibitorRepo, pub, lg.Named("lead"))
	exhibitorSvc := service.NewExhibitorService(exhibitorRepo, lg.Named("exhibitor"))
	scheduleSvc := service.NewScheduleService(sessionRepo, exhibitorRepo)
	reportSvc := service.NewReportService(reportRepo, leadRepo)

	h := router.Handlers{
		Auth:         handler.NewAuthHandler(cfg, userRepo, tokenRepo, exhibitorRepo, lg),
		QR:           handler.NewQRHandler(qrSvc, lg),
		Booth:        handler.NewBoothHandler(boothSvc, lg),
		Lead:         handler.NewLeadHandler(leadSvc, lg),
		Exhibitor:    handler.NewExhibitorHandler(exhibitorSvc, lg),
		Schedule:     handler.NewScheduleHandler(scheduleSvc, lg),
		Report:       handler.NewReportHandler(reportSvc, lg),
		Notification: handler.NewNotificationHandler(store, hub, cfg.Notification.AdminRecipient, lg),
		Ready:        &handler.Readiness{DB: db, Redis: rdb},
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(lg.Named("http")))

	rlLog := lg.Named("ratelimit")
	scanLimit := middleware.NewLimiter(config.LoadRateLimitConfig(config.ScopeScan), rdb, rlLog).Middleware()
	leadLimit := middleware.NewLimiter(config.LoadRateLimitConfig(config.ScopeLead), rdb, rlLog).Middleware()
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, h)
	router.RegisterAuth(e, h.Auth, cfg.JWTSecret)
	router.RegisterPublic(e, h, leadLimit)
	router.RegisterStaff(e, h, cfg.JWTSecret)
	router.RegisterAdmin(e, h, cfg.JWTSecret, scanLimit, cache)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Warn("http shutdown", zap.Error(err))
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		lg.Warn("change consumer did not stop in time")
	}
}

// ensureAdmin creates the bootstrap admin from ADMIN_EMAIL/ADMIN_PASSWORD
// when both are set and no account with that email exists.
func ensureAdmin(ctx context.Context, users *repository.UserRepo, cfg config.Config, lg *zap.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	id, err := users.Create(ctx, cfg.AdminEmail, cfg.AdminPassword, model.RoleAdmin, nil, cfg.BcryptCost)
	if err != nil && !errors.Is(err, repository.ErrEmailExists) {
		return err
	}
	lg.Info("bootstrap admin created", zap.Uint64("user_id", id))
	return nil
}
