package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/events"
	httpapi "storefront/internal/http"
	"storefront/internal/idempotency"
	"storefront/internal/logging"
	"storefront/internal/payment"
	"storefront/internal/repository"
	"storefront/internal/service"

	_ "storefront/docs"
)

type stores struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
	reviews  repository.ReviewRepository
	tx       repository.TxManager
	close    func(context.Context) error
}

func openStores(ctx context.Context, cfg config.Config, log zerolog.Logger) (*stores, error) {
	if cfg.Storage == "memory" {
		mem := repository.NewMemoryStore()
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return &stores{
			products: mem,
			orders:   repository.NewMemoryOrders(mem),
			users:    repository.NewMemoryUsers(mem),
			reviews:  repository.NewMemoryReviews(mem),
			tx:       repository.NewMemoryTx(mem),
			close:    func(context.Context) error { return nil },
		}, nil
	}

	client, err := repository.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	log.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")
	return &stores{
		products: repository.NewMongoProducts(db),
		orders:   repository.NewMongoOrders(db),
		users:    repository.NewMongoUsers(db),
		reviews:  repository.NewMongoReviews(db),
		tx:       repository.NewMongoTx(client),
		close:    client.Disconnect,
	}, nil
}

func main() {
	configPath := flag.String("config", os.Getenv("STOREFRONT_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := logging.New("info", false)
		l.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogPretty)
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage).Msg("open storage")
	}

	var idem idempotency.Store = idempotency.NewMemoryStore()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = idempotency.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		idem = idempotency.NewRedisStore(redisClient)
	}

	var publisher events.Publisher = events.NopPublisher{}
	var kafkaWriter *kafka.Writer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaWriter = events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)
		publisher = events.NewKafkaPublisher(kafkaWriter)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing order events")
	}

	pricing := payment.Pricing{Currency: cfg.Currency, DeliveryCharge: decimal.NewFromFloat(cfg.DeliveryCharge)}
	opts := service.OrderOptions{
		Pricing:        pricing,
		Events:         publisher,
		Idempotency:    idem,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Log:            log,
	}
	if cfg.StripeSecretKey != "" {
		opts.Redirect = payment.NewStripe(cfg.StripeSecretKey, pricing)
	} else {
		log.Warn().Msg("stripe disabled: no secret key")
	}
	if cfg.RazorpayKeyID != "" {
		opts.Polling = payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, pricing)
	} else {
		log.Warn().Msg("razorpay disabled: no key")
	}

	usersSvc := service.NewUserService(st.users, auth.NewHasher(cfg.BcryptCost), auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), log)
	if cfg.BootstrapAdmin() {
		if err := usersSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
	}

	srv := httpapi.NewServer(httpapi.Services{
		Products: service.NewProductService(st.products, log),
		Orders:   service.NewOrderService(st.products, st.orders, st.users, st.tx, opts),
		Users:    usersSvc,
		Reviews:  service.NewReviewService(st.reviews, st.products, st.users, log),
		Cart:     service.NewCartService(st.users, st.products, st.tx),
	}, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			log.Error().Err(err).Msg("close kafka writer")
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := st.close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("close storage")
	}
}
