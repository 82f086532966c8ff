package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/common/llm"
	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/common/otel"
	"difendimi.live/intake/core/config"
	"difendimi.live/intake/core/db"
	"difendimi.live/intake/core/db/sqlc"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/report"
	"difendimi.live/intake/internal/store"
	"difendimi.live/intake/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "report worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.Group,
		"consumer_name", cfg.Queue.Consumer,
		"report_model", cfg.ReportLLM.Model)

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.Stream,
		Group:        cfg.Queue.Group,
		Consumer:     cfg.Queue.Consumer,
		DLQStream:    cfg.Queue.DLQStream,
		BatchSize:    1, // reports are slow, one case at a time
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	reportClient, err := llm.New(cfg.ReportLLM.ClientConfig())
	if err != nil {
		slog.ErrorContext(ctx, "failed to create report llm client", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())
	w := worker.New(consumer, stores.Cases(), &workerTxRunnerAdapter{db: database}, report.NewGenerator(reportClient), worker.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
	})

	reclaimer := worker.NewReclaimer(redisClient, worker.ReclaimerConfig{
		Stream:    cfg.Queue.Stream,
		Group:     cfg.Queue.Group,
		Consumer:  cfg.Queue.Consumer + "-reclaimer",
		MinIdle:   cfg.Queue.ReclaimMinIdle,
		Interval:  cfg.Queue.ReclaimInterval,
		BatchSize: 10,
	}, consumer, w)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := w.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("worker: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		reclaimer.Run(gCtx)
		return nil
	})

	slog.InfoContext(ctx, "worker initialized and running")

	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "worker stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

// workerTxRunnerAdapter bridges db.DB to worker.TxRunner.
type workerTxRunnerAdapter struct {
	db *db.DB
}

func (a *workerTxRunnerAdapter) WithTx(ctx context.Context, fn func(stores worker.StoreProvider) error) error {
	return a.db.WithTx(ctx, func(q *sqlc.Queries) error {
		return fn(store.NewStores(q))
	})
}

const banner = `
██████╗ ██╗███████╗███████╗███╗   ██╗██████╗ ██╗███╗   ███╗██╗
██╔══██╗██║██╔════╝██╔════╝████╗  ██║██╔══██╗██║████╗ ████║██║
██║  ██║██║█████╗  █████╗  ██╔██╗ ██║██║  ██║██║██╔████╔██║██║
██║  ██║██║██╔══╝  ██╔══╝  ██║╚██╗██║██║  ██║██║██║╚██╔╝██║██║
██████╔╝██║██║     ███████╗██║ ╚████║██████╔╝██║██║ ╚═╝ ██║██║
╚═════╝ ╚═╝╚═╝     ╚══════╝╚═╝  ╚═══╝╚═════╝ ╚═╝╚═╝     ╚═╝╚═╝
                        report worker
`
