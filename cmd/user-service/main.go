package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jawfish/klink/internal/config"
	"github.com/Jawfish/klink/internal/crypto"
	"github.com/Jawfish/klink/internal/events"
	"github.com/Jawfish/klink/internal/handler"
	"github.com/Jawfish/klink/internal/logging"
	"github.com/Jawfish/klink/internal/repository"
	"github.com/Jawfish/klink/internal/server"
	"github.com/Jawfish/klink/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.Log.Env)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := cfg.ValidateUserService(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database connection
	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Optional user.created events
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rmq, err := events.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, continuing without user events", zap.Error(err))
		} else {
			publisher = rmq
		}
	}
	defer publisher.Close()

	userRepo := repository.NewUserRepository(db, logger)
	userService := service.NewUserService(userRepo, crypto.NewPasswordHasher(nil), publisher, logger)
	userHandler := handler.NewUserHandler(userService, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.NewUserServer(userHandler, logger)
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("User service stopped.")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/user-service.yml"
}
