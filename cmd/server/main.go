package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"difendimi.live/intake/common/id"
	"difendimi.live/intake/common/logger"
	"difendimi.live/intake/common/otel"
	"difendimi.live/intake/core/config"
	"difendimi.live/intake/core/db"
	"difendimi.live/intake/internal/http/middleware"
	httprouter "difendimi.live/intake/internal/http/router"
	"difendimi.live/intake/internal/intake"
	"difendimi.live/intake/internal/oracle"
	"difendimi.live/intake/internal/queue"
	"difendimi.live/intake/internal/service"
	"difendimi.live/intake/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		// Can't use slog yet, OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "intake server starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"oracle_mode", cfg.Oracle.Mode,
		"prompt_version", oracle.PromptVersion())

	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	caseProducer := queue.NewRedisProducer(redisClient, cfg.Queue.Stream, slog.Default())
	defer caseProducer.Close()

	completeness, err := oracle.FromConfig(cfg.Oracle, cfg.OracleLLM)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create oracle", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())
	loop := intake.New(completeness, stores.Cases(), intake.Options{
		OracleTimeout:   cfg.Oracle.Timeout,
		Acknowledgement: cfg.Intake.Acknowledgement,
	})

	services := service.NewServices(service.ServicesConfig{
		Cases:    stores.Cases(),
		Reports:  stores.Reports(),
		Sessions: store.NewRedisSessionStore(redisClient, cfg.Intake.SessionTTL, cfg.Intake.LockTTL),
		TxRunner: service.NewTxRunner(database),
		Loop:     loop,
		Producer: caseProducer,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Statements wait on the oracle.
		WriteTimeout: cfg.Oracle.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		MetricsEnabled: true,
	})

	return router
}

const banner = `
██████╗ ██╗███████╗███████╗███╗   ██╗██████╗ ██╗███╗   ███╗██╗
██╔══██╗██║██╔════╝██╔════╝████╗  ██║██╔══██╗██║████╗ ████║██║
██║  ██║██║█████╗  █████╗  ██╔██╗ ██║██║  ██║██║██╔████╔██║██║
██║  ██║██║██╔══╝  ██╔══╝  ██║╚██╗██║██║  ██║██║██║╚██╔╝██║██║
██████╔╝██║██║     ███████╗██║ ╚████║██████╔╝██║██║ ╚═╝ ██║██║
╚═════╝ ╚═╝╚═╝     ╚══════╝╚═╝  ╚═══╝╚═════╝ ╚═╝╚═╝     ╚═╝╚═╝
                        intake server
`
