package main

import (
	"context"
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

	"basegraph.app/crmrelay/common/id"
	"basegraph.app/crmrelay/common/logger"
	"basegraph.app/crmrelay/common/otel"
	"basegraph.app/crmrelay/core/config"
	"basegraph.app/crmrelay/internal/http/middleware"
	httprouter "basegraph.app/crmrelay/internal/http/router"
	"basegraph.app/crmrelay/internal/queue"
	"basegraph.app/crmrelay/internal/service"
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
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "crmrelay starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	if err := cfg.Tracker.Validate(); err != nil {
		slog.WarnContext(ctx, "linear not fully configured, webhooks will fail", "error", err)
	}
	if !cfg.Storage.Enabled() {
		slog.WarnContext(ctx, "r2 not fully configured, webhooks with attachments will fail")
	}

	publisher, err := newPublisher(ctx, cfg.Notify)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	services := service.NewServices(service.ServicesConfig{
		Config:    cfg,
		Publisher: publisher,
		Logger:    slog.Default(),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := newHTTPServer(cfg, setupRouter(cfg, services))

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
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

func newPublisher(ctx context.Context, cfg config.NotifyConfig) (queue.Publisher, error) {
	if !cfg.Enabled() {
		slog.InfoContext(ctx, "relay notifications disabled (no REDIS_URL)")
		return queue.NewNoopPublisher(), nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.RedisStream)

	return queue.NewRedisPublisher(redisClient, cfg.RedisStream, cfg.StreamMaxLen, slog.Default()), nil
}

// shutdownTimeout is how long in-flight deliveries get to finish on SIGTERM.
const shutdownTimeout = 2 * time.Minute

// newHTTPServer leaves WriteTimeout unset. A delivery runs its outbound calls in
// rounds of ATTACHMENT_CONCURRENCY, each call bounded by its own timeout, so no
// fixed deadline covers every attachment count. A deadline that fires after the
// issue exists would drop the 200 and invite a duplicate retry.
func newHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services)

	return router
}

const banner = `
 ██████╗██████╗ ███╗   ███╗    ██████╗ ███████╗██╗      █████╗ ██╗   ██╗
██╔════╝██╔══██╗████╗ ████║    ██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝
██║     ██████╔╝██╔████╔██║    ██████╔╝█████╗  ██║     ███████║ ╚████╔╝ 
██║     ██╔══██╗██║╚██╔╝██║    ██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝  
╚██████╗██║  ██║██║ ╚═╝ ██║    ██║  ██║███████╗███████╗██║  ██║   ██║   
 ╚═════╝╚═╝  ╚═╝╚═╝     ╚═╝    ╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝   
`
