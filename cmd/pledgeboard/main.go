package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arnold/esg-pledges-api/internal/config"
	"github.com/arnold/esg-pledges-api/internal/images"
	"github.com/arnold/esg-pledges-api/internal/logging"
	"github.com/arnold/esg-pledges-api/internal/notify"
	"github.com/arnold/esg-pledges-api/internal/server"
	"github.com/arnold/esg-pledges-api/internal/services"
	"github.com/arnold/esg-pledges-api/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "pledgeboard",
	Short:         "ESG pledge tracking and rewards API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if logger, err = logging.New(cfg.Log.Level, cfg.Log.Format); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and indexes",
	RunE:  runMigrate,
}

var promoteCmd = &cobra.Command{
	Use:   "promote [email]",
	Short: "Grant the admin role to a registered user",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromote,
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Deliver reward notifications from the AMQP queue",
	Long: `Consumes reward events published by API processes running with
NOTIFY_TRANSPORT=amqp and hands them to the email, inbox and push sinks.`,
	RunE: runWorker,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete stored images no pledge references anymore",
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, promoteCmd, workerCmd, sweepCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}

// openStore connects and migrates the store for one-shot commands.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := server.OpenStore(ctx, cfg.Database, cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return st, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("database migrated", zap.String("driver", cfg.Database.Driver))
	return nil
}

func runPromote(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	if err := services.NewUserService(st, nil).Promote(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("promote %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", args[0])
	return nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	consumer, err := server.OpenAMQPConsumer(cfg.Notify, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	dispatcher := notify.NewDispatcher(logger, cfg.Notify.Workers, cfg.Notify.QueueSize,
		server.Sinks(ctx, cfg, st, logger)...)
	defer dispatcher.Close(context.WithoutCancel(ctx))

	logger.Info("worker consuming reward events", zap.String("queue", cfg.Notify.QueueName))
	return consumer.Run(ctx, dispatcher)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	img, _, err := server.OpenImages(ctx, cfg.Images, cfg.Server.BaseURL)
	if err != nil {
		return err
	}

	n, err := images.NewSweeper(img, st, cfg.Images.SweepGrace, logger).Sweep(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned images\n", n)
	return nil
}
