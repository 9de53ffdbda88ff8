package main // Entry point package

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

	"github.com/labstack/echo/v4"                    // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // Echo's stock middleware
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/match-session-planner/internal/config"     // Internal config loader
	"github.com/iliyamo/match-session-planner/internal/handler"    // HTTP handlers
	"github.com/iliyamo/match-session-planner/internal/logger"     // slog factory
	"github.com/iliyamo/match-session-planner/internal/middleware" // cache and rate limit
	"github.com/iliyamo/match-session-planner/internal/queue"      // activity events
	"github.com/iliyamo/match-session-planner/internal/repository" // snapshot stores
	"github.com/iliyamo/match-session-planner/internal/router"     // route registration
	"github.com/iliyamo/match-session-planner/internal/service"    // session engine
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env, "match-session-planner")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional unless it is the store driver.  A nil client
	// disables the cache and the rate limiter.
	var rdb *redis.Client
	if cfg.StoreDriver == config.DriverRedis || cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		rdb = config.NewRedisClient(cfg.Redis)
		if rdb == nil {
			log.Warn("redis unavailable; cache and rate limiting disabled", slog.String("addr", cfg.Redis.Address()))
		} else {
			defer rdb.Close()
		}
	}

	store, closeStore, err := repository.Open(ctx, cfg, rdb)
	if err != nil {
		return err
	}
	defer closeStore()
	log.Info("store ready", slog.String("driver", cfg.StoreDriver))

	opts := []service.Option{service.WithLogger(log)}
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.RabbitMQURL, log)
		defer pub.Close()
		opts = append(opts, service.WithNotifier(pub))
	}
	if cfg.RunConsumer {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.ActivityLogDir, log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("activity consumer stopped", slog.Any("error", err))
			}
		}()
	}
	svc := service.New(store, opts...)

	e := newEcho(cfg, log)
	router.RegisterRoutes(e)
	router.RegisterSessions(e, handler.NewSessionHandler(svc, cfg.HideSecrets, log), router.SessionMiddleware{
		Cache:      middleware.NewRedisCache(cfg.Cache, rdb),
		Limit:      middleware.NewTokenBucket(cfg.RateLimit, rdb, log),
		Invalidate: middleware.InvalidateCache(cfg.Cache, rdb, log),
	})
	if cfg.AdminEnabled() {
		router.RegisterAdmin(e, handler.NewAdminHandler(cfg, svc, log), cfg.JWTSecret)
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newEcho builds the Echo instance with request ids, panic recovery,
// access logging into slog and CORS for the browser client.
func newEcho(cfg config.Config, log *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("request_id", v.RequestID),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.Any("error", v.Error))
			}
			log.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	return e
}
