package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"foodshare/docs"
	"foodshare/internal/config"
	"foodshare/internal/database"
	"foodshare/internal/database/migration"
	handlers "foodshare/internal/http/handler"
	"foodshare/internal/http/middleware"
	"foodshare/internal/logger"
	"foodshare/internal/metrics"
	"foodshare/internal/otel"
	"foodshare/internal/repository"
	"foodshare/internal/repository/memory"
	"foodshare/internal/repository/postgres"
	"foodshare/internal/service"
	"foodshare/internal/storage"
)

// @title						Foodshare API
// @version					1.0
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(cfg.AppEnv, cfg.Location())

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	repo, pinger, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	// Object storage is optional; without it uploads are refused and
	// thumbnails fall back to the default image.
	var objStore storage.Storage
	if cfg.MinIO.Endpoint != "" {
		objStore, err = storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize object storage")
		}
	} else {
		log.Warn().Msg("MINIO_ENDPOINT not set, image uploads disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg, "/healthz")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register domain metrics")
	}

	opts := service.Options{
		Logger:          log,
		Recorder:        recorder,
		DefaultImageURL: cfg.Media.DefaultImageURL,
		PresignExpiry:   cfg.Media.PresignExpiry(),
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("AUTH_JWT_SECRET is required")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())
	app.Use(middleware.Timeout(cfg.RequestTimeout()))
	app.Use(middleware.Auth(middleware.AuthConfig{
		Secret:  []byte(cfg.Auth.JWTSecret),
		Issuer:  cfg.Auth.JWTIssuer,
		OnError: handlers.AuthError,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:        pinger,
		Donations: service.NewDonationService(repo, objStore, opts),
		Orders:    service.NewOrderService(repo, objStore, opts),
		Users:     service.NewUserService(repo, opts),
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

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("api listening")
		if err := app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("failed to shutdown server")
	}
	log.Info().Msg("server stopped")
}

// openStore selects the donation store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (repository.DonationRepository, handlers.Pinger, func()) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store, data is lost on restart")
		store := memory.New()
		return store, store, func() {}

	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		return postgres.NewDonationPostgres(db), db, func() { db.Close() }

	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("unknown STORE_DRIVER")
		return nil, nil, nil
	}
}
