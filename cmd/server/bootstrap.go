package main

import (
	"context"
	"time"

	"github.com/creatorclub/backend/internal/config"
	"github.com/creatorclub/backend/internal/handlers"
	"github.com/creatorclub/backend/internal/migrate"
	"github.com/creatorclub/backend/internal/models"
	"github.com/creatorclub/backend/internal/services"
	"github.com/creatorclub/backend/internal/utils"
	"github.com/creatorclub/backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg       *config.Config
	db        *gorm.DB
	rdb       *redis.Client
	taskQueue services.TaskQueue
	worker    *services.Worker
	scheduler *services.Scheduler
	logs      *services.SystemLogService

	authHandler      *handlers.AuthHandler
	communityHandler *handlers.CommunityHandler
	checkoutHandler  *handlers.CheckoutHandler
	waitlistHandler  *handlers.WaitlistHandler
	profileHandler   *handlers.ProfileHandler
	systemLogHandler *handlers.SystemLogHandler
	healthHandler    *handlers.HealthHandler
	metricsHandler   *handlers.MetricsHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	db, err := models.Open(&cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	applied, err := migrate.Migrate(ctx, db)
	cancel()
	if err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if applied > 0 {
		logger.Infof("Applied %d migration(s)", applied)
	}

	logs := services.NewSystemLogService(db)
	taskQueue := services.NewTaskQueue(&cfg.Redis)
	rdb, guard := newJoinGuard(cfg)

	authService := services.NewAuthService(db, &cfg.JWT)
	pricingService := services.NewPricingService(db)
	membershipService := services.NewMembershipService(db)
	checkoutService := services.NewCheckoutService(db, services.NewHTTPCheckoutProvider(&cfg.Checkout), &cfg.Checkout, &cfg.App, taskQueue, membershipService, logs)
	joinService := services.NewJoinService(pricingService, membershipService, checkoutService, guard, &cfg.App)
	waitlistService := services.NewWaitlistService(db, taskQueue, services.NewMailer(&cfg.SMTP), &cfg.Waitlist)

	// Task handlers run in-process without Redis, on the asynq worker otherwise
	var registrar services.TaskRegistrar
	var worker *services.Worker
	switch q := taskQueue.(type) {
	case *services.SyncQueue:
		registrar = q
	default:
		if worker = services.NewWorker(&cfg.Redis); worker != nil {
			registrar = worker
		}
	}
	if registrar != nil {
		registrar.Handle(services.TaskTypeWaitlistWelcome, waitlistService.HandleWelcomeTask)
		registrar.Handle(services.TaskTypeCheckoutFulfill, checkoutService.HandleFulfillTask)
	}
	if worker != nil {
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start worker: %v", err)
		}
	}

	scheduler := services.NewScheduler(db)
	if err := services.RegisterHousekeeping(scheduler, services.Housekeeping{
		Checkout:         checkoutService,
		Auth:             authService,
		Logs:             logs,
		LogRetentionDays: cfg.App.LogRetentionDays,
	}); err != nil {
		logger.Fatalf("Failed to schedule housekeeping: %v", err)
	}
	scheduler.Start()

	if err := authService.CreateAdminIfNotExists(cfg.App.AdminEmail, cfg.App.AdminPassword); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:       cfg,
		db:        db,
		rdb:       rdb,
		taskQueue: taskQueue,
		worker:    worker,
		scheduler: scheduler,
		logs:      logs,

		authHandler:      handlers.NewAuthHandler(authService, joinService),
		communityHandler: handlers.NewCommunityHandler(services.NewCommunityService(db, pricingService), membershipService, joinService, checkoutService, authService),
		checkoutHandler:  handlers.NewCheckoutHandler(checkoutService, logs),
		waitlistHandler:  handlers.NewWaitlistHandler(waitlistService),
		profileHandler:   handlers.NewProfileHandler(services.NewProfileService(db)),
		systemLogHandler: handlers.NewSystemLogHandler(logs, cfg.App.LogRetentionDays),
		healthHandler:    handlers.NewHealthHandler(db, taskQueue),
		metricsHandler:   handlers.NewMetricsHandler(db, taskQueue),
	}
}

// newJoinGuard shares the in-flight guard through Redis when it is reachable.
func newJoinGuard(cfg *config.Config) (*redis.Client, services.InFlightGuard) {
	if !cfg.Redis.Enabled {
		return nil, services.NewLocalGuard(cfg.Checkout.GuardTTL)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis unavailable, join guard is process-local: %v", err)
		rdb.Close()
		return nil, services.NewLocalGuard(cfg.Checkout.GuardTTL)
	}
	return rdb, services.NewRedisGuard(rdb, cfg.Checkout.GuardTTL)
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	logger.Info().Msg("Scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.rdb != nil {
		s.rdb.Close()
	}
	if err := models.Close(s.db); err != nil {
		logger.Warn().Err(err).Msg("Failed to close database")
	}
}
