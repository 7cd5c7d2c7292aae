package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/command"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/domain/pricing"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/example/ec-storefront/internal/query"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.ConfigureLogger(); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}
	logger := log.WithField("component", "main")

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open store")
	}
	defer st.Close()

	publisher, closePublisher, err := openPublisher(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to open event sink")
	}
	defer closePublisher()

	users := user.NewService(st)
	if cfg.AdminEmail != "" {
		admin, created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.WithError(err).Fatal("failed to bootstrap admin")
		}
		if created {
			logger.WithField("email", admin.Email).Info("admin account created")
		}
	}

	calc := pricing.NewCalculator(cfg.TaxRate, cfg.FreeShippingThreshold, cfg.FlatShippingFee)
	m := metrics.NewStorefrontMetrics()
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	handlers := api.NewHandlers(command.NewHandler(st, calc, publisher, m), query.NewHandler(st, calc), cfg.CookieSecure)
	router := api.NewRouter(api.RouterConfig{
		Handlers:     handlers,
		AuthHandlers: api.NewAuthHandlers(users, jwtService, cfg.CookieSecure),
		JWTService:   jwtService,
		Metrics:      m,
		Health:       st,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(log.Fields{"addr": cfg.HTTPAddr, "event_sink": cfg.EventSink}).Info("server started")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("shutdown incomplete")
	}
}

// openStore returns Postgres when DATABASE_URL is set and the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store")
		return store.NewMemoryStore(), nil
	}
	db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	pg := store.NewPostgresStore(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return pg, nil
}

func openPublisher(ctx context.Context, cfg config.Config) (command.EventPublisher, func(), error) {
	switch cfg.EventSink {
	case config.EventSinkKafka:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		return producer, func() { _ = producer.Close() }, nil
	case config.EventSinkDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, err
		}
		client := dynamodb.NewFromConfig(awsCfg)
		return store.NewDynamoEventLog(client, cfg.DynamoDBTable), func() {}, nil
	default:
		return nil, func() {}, nil
	}
}
