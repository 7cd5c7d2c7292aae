package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/email"
	"github.com/example/ec-storefront/internal/infrastructure/kinesis"
	"github.com/example/ec-storefront/internal/notification"
	log "github.com/sirupsen/logrus"
)

var (
	notificationHandler *notification.Handler
	logger              = log.WithField("component", "lambda-notifier")
)

func init() {
	cfg, err := config.LoadWorker()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := cfg.ConfigureLogger(); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}

	emailSvc := email.NewService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	notificationHandler = notification.NewHandler(emailSvc)
	logger.WithField("smtp", cfg.SMTPHost+":"+cfg.SMTPPort).Info("initialized")
}

// handler mails every order event in the batch. Records that fail to decode or
// to send are reported back so only they are retried.
func handler(ctx context.Context, kinesisEvent events.KinesisEvent) (events.KinesisEventResponse, error) {
	decoded, failures, errs := kinesis.DecodeBatch(kinesisEvent)
	for _, err := range errs {
		logger.WithError(err).Error("failed to decode record")
	}

	for _, d := range decoded {
		entry := logger.WithFields(log.Fields{"event_id": d.Event.ID, "event_type": d.Event.EventType})
		if err := notificationHandler.Handle(ctx, d.Event); err != nil {
			entry.WithError(err).Error("failed to process event")
			failures = append(failures, events.KinesisBatchItemFailure{ItemIdentifier: d.SequenceNumber})
			continue
		}
		entry.Debug("event processed")
	}

	logger.WithFields(log.Fields{
		"records": len(kinesisEvent.Records),
		"failed":  len(failures),
	}).Info("batch processed")

	return events.KinesisEventResponse{BatchItemFailures: failures}, nil
}

func main() {
	lambda.Start(handler)
}
