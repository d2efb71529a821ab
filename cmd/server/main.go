package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"kasirpos/internal/bootstrap"
	"kasirpos/internal/config"
	"kasirpos/internal/httpapi"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Info("no .env file loaded")
	}
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.WithError(err).Fatal("invalid security configuration")
	}
	if cfg.UsingDefaultPassword {
		logger.Warn("SEED_ADMIN_PASSWORD or SEED_USER_PASSWORD not set; default seed passwords apply to a fresh store")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rt, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{WithSuggestions: true})
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}

	gin.SetMode(gin.ReleaseMode)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL, rt.Service)
	api := httpapi.New(rt.Service, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.Address()).Info("POS backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown error")
	}
	rt.Close(logger)

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive")
	}
	return nil
}
