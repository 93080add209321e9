package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/meditrack/reminder-service/internal/config"
	"github.com/meditrack/reminder-service/internal/coordinator"
	"github.com/meditrack/reminder-service/internal/handlers"
	"github.com/meditrack/reminder-service/internal/middleware"
	"github.com/meditrack/reminder-service/internal/notify"
	"github.com/meditrack/reminder-service/internal/queue"
	"github.com/meditrack/reminder-service/internal/scheduler"
	"github.com/meditrack/reminder-service/internal/services"
	"github.com/meditrack/reminder-service/internal/store"
	"github.com/meditrack/reminder-service/pkg/redis"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	redisClient, err := redis.InitRedis(cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	// A missing alert queue is not fatal: the notifier degrades to no-op
	// and reminders keep persisting.
	var rabbitClient *queue.RabbitMqClient
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = queue.NewRabbitMqService(cfg.RabbitMQ)
		if err != nil {
			logger.Warn("rabbitmq unavailable, alerts degrade to no-op", zap.Error(err))
			rabbitClient = nil
		} else {
			defer rabbitClient.CloseConnection()
			logger.Info("connected to rabbitmq")
		}
	} else {
		logger.Warn("no rabbitmq url configured, alerts degrade to no-op")
	}

	reminderStore := store.NewRedisReminderStore(redisClient)
	medicationStore := store.NewRedisMedicationStore(redisClient)
	settingsStore := store.NewRedisSettingsStore(redisClient)

	var publisher notify.AlertPublisher
	if rabbitClient != nil {
		publisher = rabbitClient
	}
	notifier := notify.NewQueueNotifier(publisher, logger)
	sched := scheduler.New(notifier, cfg.Scheduler.AutoClose, logger)
	defer sched.Close()

	whatsapp := services.NewWhatsAppClient(cfg.WhatsApp, logger)
	storage := services.NewStorageClient(cfg.Storage, logger)

	coord := coordinator.New(
		reminderStore,
		medicationStore,
		settingsStore,
		sched,
		sched.Events(),
		whatsapp,
		storage,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	reminderHandler := handlers.NewReminderHandler(coord, logger)
	settingsHandler := handlers.NewSettingsHandler(coord, whatsapp, logger)
	medicationHandler := handlers.NewMedicationHandler(medicationStore, logger)
	healthHandler := handlers.NewHealthHandler(rabbitClient, redisClient, sched)

	r := gin.Default()
	r.Use(middleware.CorrelationID())

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	{
		api.GET("/reminders", reminderHandler.ListReminders)
		api.POST("/reminders", reminderHandler.CreateReminder)
		api.GET("/reminders/:id", reminderHandler.GetReminder)
		api.PUT("/reminders/:id", reminderHandler.UpdateReminder)
		api.DELETE("/reminders/:id", reminderHandler.DeleteReminder)
		api.POST("/reminders/:id/verify", reminderHandler.VerifyReminder)

		api.GET("/settings", settingsHandler.GetSettings)
		api.PUT("/settings", settingsHandler.UpdateSettings)
		api.POST("/settings/guardian/test", settingsHandler.TestGuardian)

		api.GET("/medications", medicationHandler.ListMedications)
		api.POST("/medications", medicationHandler.CreateMedication)
		api.DELETE("/medications/:id", medicationHandler.DeleteMedication)
	}

	r.GET("/health", healthHandler.HealthCheck)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()
	logger.Info("reminder service started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
