// Package server wires configuration, storage, notifications and the HTTP
// surface into a runnable API process.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arnold/esg-pledges-api/internal/auth"
	"github.com/arnold/esg-pledges-api/internal/config"
	"github.com/arnold/esg-pledges-api/internal/handlers"
	"github.com/arnold/esg-pledges-api/internal/images"
	"github.com/arnold/esg-pledges-api/internal/middleware"
	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/arnold/esg-pledges-api/internal/notify"
	"github.com/arnold/esg-pledges-api/internal/realtime"
	"github.com/arnold/esg-pledges-api/internal/routes"
	"github.com/arnold/esg-pledges-api/internal/services"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	app    *fiber.App
	store  store.Store

	dispatcher *notify.Dispatcher
	outbox     *notify.Dispatcher
	amqpPub    *notify.AMQPPublisher
	consumer   *notify.AMQPConsumer
	sweeper    *images.Sweeper
	hub        *realtime.Hub
}

// New opens and migrates the store, then assembles the server around it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	st, err := OpenStore(ctx, cfg.Database, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s, err := Assemble(ctx, cfg, logger, st)
	if err != nil {
		st.Close()
		return nil, err
	}
	return s, nil
}

// Assemble builds every component on top of an already migrated store. The
// server owns st afterwards and closes it in Close.
func Assemble(ctx context.Context, cfg *config.Config, logger *zap.Logger, st store.Store) (*Server, error) {
	img, uploadsDir, err := OpenImages(ctx, cfg.Images, cfg.Server.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}

	s := &Server{cfg: cfg, logger: logger, store: st}

	rankings := services.NewRankingService(st, logger)
	s.hub = realtime.NewHub(logger, rankings.Compute)
	s.dispatcher = notify.NewDispatcher(logger, cfg.Notify.Workers, cfg.Notify.QueueSize,
		Sinks(ctx, cfg, st, logger, s.hub)...)

	var publisher notify.Publisher = s.dispatcher
	if cfg.Notify.Transport == "amqp" {
		if s.amqpPub, err = notify.NewAMQPPublisher(cfg.Notify.AMQPURL, cfg.Notify.QueueName); err != nil {
			s.dispatcher.Close(ctx)
			return nil, fmt.Errorf("amqp publisher: %w", err)
		}
		if s.consumer, err = OpenAMQPConsumer(cfg.Notify, logger); err != nil {
			s.amqpPub.Close()
			s.dispatcher.Close(ctx)
			return nil, err
		}
		// Requests only enqueue; a single worker forwards to the broker.
		s.outbox = notify.NewDispatcher(logger, 1, cfg.Notify.QueueSize, s.amqpPub)
		publisher = s.outbox
	}

	s.sweeper = images.NewSweeper(img, st, cfg.Images.SweepGrace, logger)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	users := services.NewUserService(st, jwtManager)
	pledges := services.NewPledgeService(st, img, logger)
	completions := services.NewCompletionService(st, publisher, logger)
	awards := services.NewAwardService(st)

	h := routes.Handlers{
		Auth:          handlers.NewAuthHandler(users, cfg.Auth.CookieName, cfg.Auth.TokenTTL, cfg.Server.Production),
		Pledges:       make(map[models.Category]*handlers.PledgeHandler, len(models.Categories)),
		Rankings:      handlers.NewRankingHandler(rankings),
		Notifications: handlers.NewNotificationHandler(st, users),
		Hub:           s.hub,
		Store:         st,
		UploadsDir:    uploadsDir,
	}
	for _, category := range models.Categories {
		h.Pledges[category] = handlers.NewPledgeHandler(category, pledges, completions, awards)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "ESG Pledge API",
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          handlers.ErrorHandler(logger),
		DisableStartupMessage: cfg.Server.Production,
	})

	s.app.Use(middleware.RequestLogger(logger))
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins(), ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	routes.Setup(s.app, middleware.NewAuth(jwtManager, cfg.Auth.CookieName), h)
	return s, nil
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down within the configured
// timeout and releases every resource.
func (s *Server) Run(ctx context.Context) error {
	if err := s.sweeper.Start(s.cfg.Images.SweepInterval); err != nil {
		return err
	}

	if s.consumer != nil {
		go func() {
			if err := s.consumer.Run(ctx, s.dispatcher); err != nil {
				s.logger.Error("amqp consumer stopped", zap.Error(err))
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("port", s.cfg.Server.Port))
		errc <- s.app.Listen(":" + s.cfg.Server.Port)
	}()

	var runErr error
	select {
	case runErr = <-errc:
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	return errors.Join(runErr, s.Close(shutdownCtx))
}

// Close stops background work, drains queued notifications and closes the
// store. It is safe to call on a server that never ran.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if err := s.sweeper.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop sweeper: %w", err))
	}
	if s.outbox != nil {
		if err := s.outbox.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain amqp outbox: %w", err))
		}
	}
	if s.amqpPub != nil {
		if err := s.amqpPub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp publisher: %w", err))
		}
	}
	if s.consumer != nil {
		if err := s.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp consumer: %w", err))
		}
	}
	if err := s.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain notifications: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
