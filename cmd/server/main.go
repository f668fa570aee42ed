package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	webAdapter "himalayan-flavours/internal/adapters/web"
	"himalayan-flavours/internal/ai"
	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/config"
	"himalayan-flavours/internal/db"
	"himalayan-flavours/internal/logger"
	"himalayan-flavours/internal/subscribers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on config, so this one goes to stderr directly.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		m, err := db.NewMigrator(cfg.Database.DSN(), log)
		if err != nil {
			log.Fatal("migrator", zap.Error(err))
		}
		if err := m.Up(); err != nil {
			log.Fatal("auto-migrate", zap.Error(err))
		}
		_ = m.Close()
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	services, err := app.NewServices(pool, cfg.Accounting, log)
	if err != nil {
		log.Fatal("services", zap.Error(err))
	}

	var drafter app.ExpenseDrafter
	if cfg.AI.OpenAIAPIKey != "" {
		drafter = ai.NewAgent(cfg.AI.OpenAIAPIKey, cfg.AI.Model)
	} else {
		log.Warn("OPENAI_API_KEY is not set; expense drafting is disabled")
	}
	svc := app.NewAppService(services, drafter, log)

	handler := webAdapter.NewHandler(svc, subscribers.NewStore(cfg.Storefront.SubscribersFile), webAdapter.Config{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		Audience:       cfg.Auth.Audience,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		StaticDir:      cfg.Storefront.StaticDir,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
