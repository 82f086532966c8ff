package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/core/config"
	"difendimi.live/intake/core/db"
	"difendimi.live/intake/internal/queue"
)

// bootstrap loads config and sets up logging and ids for a CLI command.
// Logs go to stderr so they never interleave with the conversation.
func bootstrap(serviceType config.ServiceType) (config.Config, error) {
	cfg, err := config.Load(serviceType)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if rootFlags.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(logger.NewTraceHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	)))

	if err := id.Init(cfg.NodeID); err != nil {
		return config.Config{}, fmt.Errorf("init id generator: %w", err)
	}
	return cfg, nil
}

func openDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return database, nil
}

func openProducer(ctx context.Context, cfg config.Config) (queue.Producer, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return queue.NewRedisProducer(client, cfg.Queue.Stream, slog.Default()), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
