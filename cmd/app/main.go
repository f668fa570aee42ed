package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"himalayan-flavours/internal/adapters/cli"
	"himalayan-flavours/internal/ai"
	"himalayan-flavours/internal/app"
	"himalayan-flavours/internal/config"
	"himalayan-flavours/internal/db"
	"himalayan-flavours/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, cli.Usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// Reports go to stdout, so logs default to stderr here.
	output := cfg.Log.Output
	if output == "stdout" {
		output = "stderr"
	}
	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: output})
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	services, err := app.NewServices(pool, cfg.Accounting, log)
	if err != nil {
		log.Fatal("services", zap.Error(err))
	}
	var drafter app.ExpenseDrafter
	if cfg.AI.OpenAIAPIKey != "" {
		drafter = ai.NewAgent(cfg.AI.OpenAIAPIKey, cfg.AI.Model)
	}
	svc := app.NewAppService(services, drafter, log)

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, cli.ErrInconsistent) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
