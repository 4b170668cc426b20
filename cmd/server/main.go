// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/peerlingo/peerlingo/internal/auth"
	"github.com/peerlingo/peerlingo/internal/config"
	"github.com/peerlingo/peerlingo/internal/database"
	"github.com/peerlingo/peerlingo/internal/events"
	"github.com/peerlingo/peerlingo/internal/handlers"
	"github.com/peerlingo/peerlingo/internal/middleware"
	"github.com/peerlingo/peerlingo/internal/realtime"
)

func main() {
	logger := logrus.New()
	cfg := config.Load()

	sessions, err := newSessionService(cfg)
	if err != nil {
		logger.Fatalf("failed to init session service: %v", err)
	}

	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatalf("failed to migrate database: %v", err)
	}
	store, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	// Token issuance is a startup precondition: refuse to boot without
	// working platform credentials rather than fail every /chat/token call.
	rt, err := realtime.NewStreamProvider(cfg.StreamAPIKey, cfg.StreamAPISecret, cfg.ChatTokenTTL)
	if err != nil {
		logger.Fatalf("failed to init realtime provider: %v", err)
	}

	var pub *events.Publisher
	if cfg.RedisAddr != "" {
		pub, err = events.Connect(cfg.RedisAddr, cfg.RedisDB, cfg.EventQueue)
		if err != nil {
			logger.Fatalf("failed to connect to Redis: %v", err)
		}
		defer pub.Close()
	}

	srv := handlers.NewServer(store, sessions, rt, pub, logger)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      middleware.LogMiddleware(logger)(srv.Routes()),
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", cfg.Addr)
		errc <- server.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	select {
	case err := <-errc:
		logger.Errorf("failed to serve: %v", err)
	case sig := <-sigs:
		logger.Infof("terminating: %v", sig)
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown error: %v", err)
		}
	}
}

func newSessionService(cfg config.Config) (*auth.Service, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.NewServiceFromFiles(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenTTL)
	}
	return auth.NewService(cfg.TokenTTL)
}
