package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/notification"
	log "github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadWorker()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.ConfigureLogger(); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}
	logger := log.WithField("component", "notifier-main")

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	handler := notification.NewHandler(emailSvc)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
		"group":   cfg.KafkaGroupID,
		"smtp":    cfg.SMTPHost + ":" + cfg.SMTPPort,
	}).Info("email notifier started")

	if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
		logger.WithError(err).Fatal("consumer stopped")
	}
	logger.Info("shutting down")
}
