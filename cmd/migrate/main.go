package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Clark-Hu/book-review-api/db"
)

const usage = "usage: migrate [up|down|status]"

func main() {
	_ = godotenv.Load(".env.local")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("app", "book-review-migrate")

	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	var env struct {
		DBURL string `env:"DB_URL" env-required:"true"`
	}
	if err := cleanenv.ReadEnv(&env); err != nil {
		logger.Error("config error", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, logger, env.DBURL, command); err != nil {
		logger.Error("migrate failed", "command", command, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dbURL, command string) error {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	provider, closeDB, err := db.NewProvider(pool)
	if err != nil {
		return err
	}
	defer closeDB()

	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			return err
		}
		for _, r := range results {
			logger.Info("applied", "version", r.Source.Version, "path", r.Source.Path, "duration", r.Duration)
		}
		if len(results) == 0 {
			logger.Info("no pending migrations")
		}
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			return err
		}
		logger.Info("rolled back", "version", result.Source.Version, "path", result.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			logger.Info("status", "version", s.Source.Version, "path", s.Source.Path,
				"state", string(s.State), "applied_at", s.AppliedAt)
		}
	default:
		return fmt.Errorf("unknown command %q, %s", command, usage)
	}
	return nil
}
