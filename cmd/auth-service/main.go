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
	"github.com/Jawfish/klink/internal/token"
	"github.com/Jawfish/klink/internal/user_client"

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

	// Missing secret, bad algorithm or missing upstream are fatal here, never per request.
	if err := cfg.ValidateAuthService(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	issuer, err := token.NewIssuer(cfg.JWT.Secret, cfg.JWT.Algorithm, cfg.JWT.TTL)
	if err != nil {
		logger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}
	hasher := crypto.NewPasswordHasher(nil)

	var (
		source  service.CredentialSource
		creator service.UserCreator
	)
	switch cfg.CredentialSource {
	case config.SourceLocal:
		db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := repository.MigrateDB(db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		users := service.NewUserService(repository.NewUserRepository(db, logger), hasher, events.NopPublisher{}, logger)
		local := service.NewLocalCredentials(users)
		source, creator = local, local
		logger.Info("Reading credentials from local store", zap.String("driver", cfg.Database.Driver))
	default:
		client := user_client.NewClient(cfg.UserService.URL, cfg.UserService.Timeout, logger)
		source, creator = client, client
		logger.Info("Reading credentials from user service", zap.String("url", cfg.UserService.URL))
	}

	authService := service.NewAuthService(source, creator, hasher, issuer, cfg.JWT.RefreshTTL, logger)
	authHandler := handler.NewAuthHandler(authService, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.NewAuthServer(authHandler, logger)
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Auth service stopped.")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/auth-service.yml"
}
