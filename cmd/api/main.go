package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/sevasangam/puja-bookings/internal/adapters/crdb"
	mongoadapter "github.com/sevasangam/puja-bookings/internal/adapters/mongo"
	"github.com/sevasangam/puja-bookings/internal/adapters/msg"
	"github.com/sevasangam/puja-bookings/internal/adapters/razorpay"
	redisadapter "github.com/sevasangam/puja-bookings/internal/adapters/redis"
	"github.com/sevasangam/puja-bookings/internal/booking"
	"github.com/sevasangam/puja-bookings/internal/config"
	httphandler "github.com/sevasangam/puja-bookings/internal/http"
	"github.com/sevasangam/puja-bookings/internal/idempotency"
	"github.com/sevasangam/puja-bookings/internal/observability"
	"github.com/sevasangam/puja-bookings/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	catalog := mongoadapter.NewCatalogRepository(mongoClient.Database("puja"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	gateway := razorpay.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret, &http.Client{Timeout: 15 * time.Second}, logger)

	var sender msg.Sender
	if cfg.MsgProviderURL == "" || cfg.MsgProviderToken == "" {
		logger.Warn("no message provider configured, notifications run in mocked mode")
		sender = msg.NewMock(logger)
	} else {
		sender = msg.NewHTTPSender(cfg.MsgProviderURL, cfg.MsgProviderToken, cfg.MsgSenderID, &http.Client{Timeout: 15 * time.Second}, logger)
	}
	notifier := booking.NewDispatcher(sender, cfg.NotifyTimeout, logger)

	intents := booking.NewIntentService(catalog, gateway, cache, cfg.IntentTTL, logger)
	verifier := booking.NewVerifier(repo, catalog, gateway, cache, logger)
	lifecycle := booking.NewLifecycle(repo, notifier, logger)
	assignment := booking.NewAssignment(repo, notifier, logger)

	handlers := httphandler.NewHandlers(cfg, repo, intents, verifier, lifecycle, assignment, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info("Shutdown Server ...")
		case <-gctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	notifier.Flush()
	logger.Info("Server exiting")
}
