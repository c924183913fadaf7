package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"portfolioapi/docs"
	"portfolioapi/internal/bootstrap"
	"portfolioapi/internal/cache"
	"portfolioapi/internal/config"
	handlers "portfolioapi/internal/http/handler"
	"portfolioapi/internal/http/middleware"
	"portfolioapi/internal/ingest"
	"portfolioapi/internal/logger"
	"portfolioapi/internal/otel"
	"portfolioapi/internal/service"
	"portfolioapi/internal/sweeper"
)

const shutdownTimeout = 15 * time.Second

// @title Portfolio API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	backends, err := bootstrap.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backends.Close()

	listCache, closeCache, err := cache.Open(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer closeCache()

	authz, err := backends.Authorizer(ctx, cfg)
	if err != nil {
		return err
	}
	if cfg.Auth.Mode == config.AuthModeNone {
		log.Warn("admin routes are unauthenticated", zap.String("auth_mode", cfg.Auth.Mode))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	projectSvc := service.NewProjectService(
		backends.Projects,
		backends.Store,
		ingest.New(backends.Store, cfg.Ingest, ingest.WithLogger(log.Named("ingest"))),
		service.WithCache(listCache),
		service.WithLogger(log),
		service.WithMetrics(metrics),
		service.WithFolder(cfg.Ingest.Folder),
	)
	profileSvc := service.NewProfileService(backends.Profiles, log)

	if cfg.Sweep.Schedule != "" {
		sw := sweeper.New(backends.Projects, backends.Store, cfg.Ingest.Folder, cfg.Sweep.Grace, log)
		c, err := sw.Schedule(ctx, cfg.Sweep.Schedule)
		if err != nil {
			return fmt.Errorf("schedule sweeper: %w", err)
		}
		defer func() { <-c.Stop().Done() }()
	}

	limiter := middleware.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.Burst)
	go limiter.Run(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// multipart bodies carry several images up to MaxFileBytes each
		BodyLimit: 8 * ingest.MaxFileBytes,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, handlers.Deps{
		Projects: projectSvc,
		Profile:  profileSvc,
		Store:    backends.Store,
		Health:   handlers.PingFunc(backends.Ping),
		Admin:    []fiber.Handler{limiter.Handler(), middleware.RequireAdmin(authz)},
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
