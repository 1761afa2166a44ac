package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/GDG-UAM/website-sub002/docs"
	"github.com/GDG-UAM/website-sub002/internal/common/cache"
	"github.com/GDG-UAM/website-sub002/internal/common/config"
	"github.com/GDG-UAM/website-sub002/internal/common/logger"
	"github.com/GDG-UAM/website-sub002/internal/common/middleware"
	"github.com/GDG-UAM/website-sub002/internal/common/validation"
	giveawayHTTP "github.com/GDG-UAM/website-sub002/internal/features/giveaway/delivery/http"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/notifier"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository"
	"github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository/memory"
	giveawayRepo "github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository/postgres"
	redisLock "github.com/GDG-UAM/website-sub002/internal/features/giveaway/repository/redis"
	giveawayService "github.com/GDG-UAM/website-sub002/internal/features/giveaway/service"
	natsclient "github.com/GDG-UAM/website-sub002/internal/platform/nats"
	"github.com/GDG-UAM/website-sub002/internal/platform/postgres"
	redisclient "github.com/GDG-UAM/website-sub002/internal/platform/redis"
)

const serviceName = "website-giveaways"

// @title           Community Giveaway API
// @version         1.0
// @description     Giveaway entries, provably fair draws and winner verification.

// @BasePath  /api/v1

// @securityDefinitions.apikey TelegramInitData
// @in header
// @name init_data
// @description Telegram Mini App init_data. Optional on public routes, required for operators.

// @tag.name giveaways
// @tag.description Public giveaway projection

// @tag.name entries
// @tag.description Joining, registration checks and the live entry count

// @tag.name draw
// @tag.description Winners and draw verification

// @tag.name admin
// @tag.description Operator actions, restricted to ADMIN_IDS

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(serviceName, cfg.Debug)

	zapLogger, err := newZapLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	zapLogger.Info("Starting giveaway service",
		zap.Bool("debug", cfg.Debug),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("notifier", cfg.Notifier.Backend),
	)

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Service stopped with error", zap.Error(err))
	}
	zapLogger.Info("Server exited")
}

func newZapLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// deps holds the external connections so readiness can probe them.
type deps struct {
	postgres *postgres.Client
	redis    *redisclient.Client
	nats     *natsclient.Client
}

func (d *deps) close() {
	if d.nats != nil {
		d.nats.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.postgres != nil {
		d.postgres.Close()
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx := context.Background()
	d := &deps{}
	defer d.close()

	var repo repository.Repository
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		if cfg.Postgres.AutoMigrate {
			if err := postgres.MigrateUp(cfg.Postgres.URL); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
		}
		client, err := postgres.NewClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		d.postgres = client
		repo = giveawayRepo.NewPostgresRepository(client.Pool())
		zapLogger.Info("Database connection established")
	default:
		repo = memory.NewRepository()
		zapLogger.Warn("Using in-memory storage, data is lost on restart")
	}

	opts := giveawayService.Options{
		LockTTL:           cfg.Giveaway.LockTTL,
		LockWaitTimeout:   cfg.Giveaway.LockWaitTimeout,
		LockRetryInterval: cfg.Giveaway.LockRetryInterval,
		VerifyCacheTTL:    cfg.Giveaway.VerifyCacheTTL,
	}

	var locker repository.Locker = memory.NewLocker()
	if cfg.Redis.Enabled {
		client, err := redisclient.OpenFromConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		d.redis = client
		locker = redisLock.NewLocker(client.Client)
		opts.Cache = cache.NewCacheService(client.Client, serviceName)
	} else {
		zapLogger.Warn("Redis disabled, giveaway locks are process local")
	}

	broker, err := newBroker(cfg, d, zapLogger)
	if err != nil {
		return err
	}
	defer func() { _ = broker.Close() }()

	counts, err := notifier.NewCountNotifier(broker, cfg.Notifier.Workers, zapLogger.Named("notifier"))
	if err != nil {
		return err
	}
	defer func() { _ = counts.Close(5 * time.Second) }()

	svc := giveawayService.NewGiveawayService(repo, locker, counts, opts, zapLogger.Named("giveaway"))

	if err := validation.Register(); err != nil {
		return err
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler(zapLogger))
	router.Use(middleware.Logger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.InitDataHeader, middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.TelegramIdentity(cfg.Telegram.BotToken, cfg.Telegram.InitDataTTL, zapLogger))

	handler := giveawayHTTP.NewGiveawayHandler(svc, broker, giveawayHTTP.Config{
		AdminIDs:  cfg.Telegram.AdminIDs,
		Heartbeat: cfg.Giveaway.EventsHeartbeat,
	}, zapLogger.Named("http"))
	handler.RegisterRoutes(router.Group("/api/v1"))

	setupInfraRoutes(router, d)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
		// no WriteTimeout, the events stream is long lived
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	zapLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	return nil
}

func newBroker(cfg *config.Config, d *deps, zapLogger *zap.Logger) (notifier.Broker, error) {
	switch cfg.Notifier.Backend {
	case config.NotifierRedis:
		return notifier.NewRedisBroker(d.redis.Client, zapLogger.Named("broker")), nil
	case config.NotifierNATS:
		client, err := natsclient.Connect(cfg.NATS.URL, serviceName)
		if err != nil {
			return nil, err
		}
		d.nats = client
		return notifier.NewNATSBroker(client.Conn, zapLogger.Named("broker")), nil
	default:
		return notifier.NewLocalBroker(), nil
	}
}

func setupInfraRoutes(router *gin.Engine, d *deps) {
	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		unready := func(component string, err error) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   component + " unavailable",
				"details": err.Error(),
			})
		}

		if d.postgres != nil {
			if err := d.postgres.HealthCheck(ctx); err != nil {
				unready("postgres", err)
				return
			}
		}
		if d.redis != nil {
			if err := d.redis.HealthCheck(ctx); err != nil {
				unready("redis", err)
				return
			}
		}
		if d.nats != nil {
			if err := d.nats.HealthCheck(); err != nil {
				unready("nats", err)
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
}
