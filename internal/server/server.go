package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Jawfish/klink/internal/gateway"
	"github.com/Jawfish/klink/internal/handler"
	"github.com/Jawfish/klink/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	router *gin.Engine
	logger *zap.Logger
}

func newServer(logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))

	// Ping route for health check
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return &Server{router: router, logger: logger}
}

// NewUserServer serves the user record endpoints.
func NewUserServer(userHandler handler.UserHandler, logger *zap.Logger) *Server {
	s := newServer(logger)
	// match escaped usernames such as "a%2Fb" against :username
	s.router.UseRawPath = true

	s.router.POST("/users", userHandler.CreateUser)
	s.router.GET("/users/:uuid", userHandler.GetUser)
	s.router.GET("/auth/", userHandler.GetAuthData)
	s.router.GET("/auth/:username", userHandler.GetAuthData)

	return s
}

// NewAuthServer serves token issuance and validation.
func NewAuthServer(authHandler handler.AuthHandler, logger *zap.Logger) *Server {
	s := newServer(logger)

	s.router.POST("/token", authHandler.Token)
	s.router.POST("/login", authHandler.Token)
	s.router.POST("/register", authHandler.Register)

	bearer := s.router.Group("/")
	bearer.Use(middleware.BearerAuth(logger))
	{
		bearer.GET("/user-identity", authHandler.UserIdentity)
		bearer.POST("/refresh", authHandler.Refresh)
	}

	return s
}

// NewGatewayServer fronts the auth service and guards user-facing routes.
func NewGatewayServer(authProxy *gateway.Proxy, identifier middleware.Identifier, gatewayHandler *handler.GatewayHandler, logger *zap.Logger) *Server {
	s := newServer(logger)

	for _, path := range []string{"/token", "/login", "/register", "/refresh"} {
		s.router.POST(path, authProxy.Forward)
	}

	authRequired := s.router.Group("/")
	authRequired.Use(middleware.IdentityAuth(identifier, logger))
	{
		authRequired.GET("/me", gatewayHandler.Me)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("Server exited")
	return nil
}
