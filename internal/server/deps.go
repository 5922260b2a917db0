package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/arnold/esg-pledges-api/internal/config"
	"github.com/arnold/esg-pledges-api/internal/database"
	"github.com/arnold/esg-pledges-api/internal/database/mongostore"
	"github.com/arnold/esg-pledges-api/internal/images"
	"github.com/arnold/esg-pledges-api/internal/notify"
	"github.com/arnold/esg-pledges-api/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// OpenStore connects the configured backend. A mongodb:// URL selects the
// Mongo store even when the driver is left at its default. It does not migrate.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logLevel string) (store.Store, error) {
	if cfg.Driver == "mongo" || strings.HasPrefix(cfg.URL, "mongodb") {
		return mongostore.Open(ctx, cfg.URL, cfg.MongoDatabase)
	}

	level := logger.Warn
	if logLevel == "debug" {
		level = logger.Info
	}
	return database.Open(cfg.URL, level)
}

// OpenImages returns the image store and, for the local driver, the
// directory to serve under /uploads.
func OpenImages(ctx context.Context, cfg config.ImagesConfig, baseURL string) (images.Store, string, error) {
	if cfg.Driver == "s3" {
		s, err := images.NewS3Store(ctx, images.S3Options{
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
			MaxSize:   cfg.MaxSize,
		})
		if err != nil {
			return nil, "", err
		}
		return s, "", nil
	}

	s, err := images.NewLocalStore(cfg.Dir, baseURL, cfg.MaxSize)
	if err != nil {
		return nil, "", err
	}
	return s, s.Dir(), nil
}

// Sinks builds the delivery sinks shared by the API process and the worker.
// Extra sinks (the websocket hub) are appended by the caller.
func Sinks(ctx context.Context, cfg *config.Config, st store.Store, log *zap.Logger, extra ...notify.Sink) []notify.Sink {
	sinks := []notify.Sink{notify.NewInboxSink(st)}

	if cfg.SMTP.Enabled() {
		sinks = append(sinks, notify.NewEmailSink(notify.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}))
	} else {
		log.Info("SMTP not configured, reward emails disabled")
	}

	if push := notify.NewPushSink(ctx, cfg.FCMServiceAccount, st, log); push.Enabled() {
		sinks = append(sinks, push)
	}

	return append(sinks, extra...)
}

// OpenAMQPConsumer dials the broker for the configured reward queue.
func OpenAMQPConsumer(cfg config.NotifyConfig, log *zap.Logger) (*notify.AMQPConsumer, error) {
	c, err := notify.NewAMQPConsumer(cfg.AMQPURL, cfg.QueueName, log)
	if err != nil {
		return nil, fmt.Errorf("amqp consumer: %w", err)
	}
	return c, nil
}
