package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grocer-be/internal/address"
	"grocer-be/internal/cart"
	"grocer-be/internal/category"
	"grocer-be/internal/config"
	"grocer-be/internal/coupon"
	"grocer-be/internal/db"
	"grocer-be/internal/httpapi"
	"grocer-be/internal/identity"
	"grocer-be/internal/kvstore"
	"grocer-be/internal/logger"
	"grocer-be/internal/middleware"
	"grocer-be/internal/product"
	"grocer-be/internal/realtime"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	hubBuffer       = 16
	shutdownTimeout = 10 * time.Second
)

var (
	initDBFunc      = db.InitDB
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

// server is the wired application; start launches its background workers.
type server struct {
	handler http.Handler
	engine  *cart.Engine
	hub     *realtime.Hub
	feed    *realtime.PGFeed
	limiter *middleware.RateLimiter
}

func (s *server) start(ctx context.Context) {
	go s.limiter.Run(ctx)
	go s.engine.Run(ctx)

	if s.feed == nil {
		logger.L().Warn("cart change feed disabled")
		return
	}
	go func() {
		if err := s.feed.Run(ctx); err != nil {
			logger.L().Error("cart change feed stopped", zap.Error(err))
		}
		s.hub.Close()
	}()
}

func newServer(cfg *config.Config, database *sql.DB, rdb redis.Cmdable) (*server, error) {
	if ch := cfg.CartNotifyChannel; ch != "" && ch != cart.NotifyChannel {
		return nil, fmt.Errorf("CART_NOTIFY_CHANNEL %q: the cart_items trigger only notifies %q, use that or \"off\"", ch, cart.NotifyChannel)
	}

	issuer, err := identity.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	s := &server{limiter: middleware.NewRateLimiter(cfg.InternalSecretKey)}

	// an empty channel runs without live cart updates
	var feed realtime.Subscriber
	if cfg.CartNotifyChannel != "" {
		s.hub = realtime.NewHub(hubBuffer)
		s.feed = realtime.NewPGFeed(db.DSN(cfg), cfg.CartNotifyChannel, s.hub)
		feed = s.hub
	}

	s.engine = cart.NewEngine(
		cart.NewRepository(database),
		coupon.NewRepository(database),
		feed,
	)

	s.handler = httpapi.NewRouter(httpapi.Deps{
		Identity:       identity.NewService(identity.NewRepository(database), issuer),
		Products:       product.NewService(product.NewRepository(database)),
		Categories:     category.NewService(category.NewRepository(database)),
		Cart:           s.engine,
		Addresses:      address.NewService(address.NewRepository(database)),
		Preferences:    kvstore.NewRedisStore(rdb, "grocer:"),
		Limiter:        s.limiter,
		RequestTimeout: cfg.RequestTimeout,
	})
	return s, nil
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	app, err := newServer(cfg, database, rdb)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		errCh <- startServerFunc(srv)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.L().Info("server stopped")
	return nil
}
