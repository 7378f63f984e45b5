package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jawfish/klink/internal/auth_client"
	"github.com/Jawfish/klink/internal/config"
	"github.com/Jawfish/klink/internal/gateway"
	"github.com/Jawfish/klink/internal/handler"
	"github.com/Jawfish/klink/internal/logging"
	"github.com/Jawfish/klink/internal/server"
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

	if err := cfg.ValidateGateway(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.Log.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authProxy := gateway.NewProxy(cfg.AuthService.URL, cfg.AuthService.Timeout, logger)
	authClient := auth_client.NewClient(cfg.AuthService.URL, cfg.AuthService.Timeout, logger)
	userClient := user_client.NewClient(cfg.UserService.URL, cfg.UserService.Timeout, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.NewGatewayServer(authProxy, authClient, handler.NewGatewayHandler(userClient, logger), logger)
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Gateway stopped.")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/gateway.yml"
}
