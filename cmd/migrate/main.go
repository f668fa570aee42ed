// migrate applies or rolls back the embedded schema migrations.
//
// Usage: go run ./cmd/migrate [up|down|steps N|version|force V]
package main

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"himalayan-flavours/internal/config"
	"himalayan-flavours/internal/db"
	"himalayan-flavours/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer func() { _ = log.Sync() }()

	m, err := db.NewMigrator(cfg.Database.DSN(), log)
	if err != nil {
		log.Fatal("migrator", zap.Error(err))
	}
	defer func() { _ = m.Close() }()

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		n, convErr := intArg()
		if convErr != nil {
			log.Fatal("usage: migrate steps N", zap.Error(convErr))
		}
		err = m.Steps(n)
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil {
			log.Fatal("version", zap.Error(verr))
		}
		fmt.Printf("version %d (dirty: %t)\n", v, dirty)
		return
	case "force":
		v, convErr := intArg()
		if convErr != nil {
			log.Fatal("usage: migrate force V", zap.Error(convErr))
		}
		err = m.Force(v)
	default:
		log.Fatal("unknown command", zap.String("command", cmd))
	}
	if err != nil {
		log.Fatal("migration failed", zap.String("command", cmd), zap.Error(err))
	}
}

func intArg() (int, error) {
	if len(os.Args) < 3 {
		return 0, fmt.Errorf("missing numeric argument")
	}
	return strconv.Atoi(os.Args[2])
}
