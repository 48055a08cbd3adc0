package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dashkit/admin-dashboard/internal/config"
	"github.com/dashkit/admin-dashboard/internal/database"
	"github.com/dashkit/admin-dashboard/internal/di"
	"github.com/dashkit/admin-dashboard/internal/observability"
)

type options struct {
	envFile string
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "admin-dashboard",
		Short:         "Admin dashboard API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "optional .env file merged under the process environment")
	cmd.AddCommand(newServeCommand(opts), newMigrateCommand(opts))
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cmd.OutOrStdout())
		},
	}
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the relational schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return migrate(cfg, cmd.OutOrStdout())
		},
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	if opts.envFile != "" {
		if err := os.Setenv("ENV_FILE", opts.envFile); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

func serve(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logger, lp, err := observability.NewLogger(ctx, cfg, out)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.SecretToken == "" {
		logger.Warn("SECRET_TOKEN is empty; every login and session check will fail")
	}
	a, err := di.InitializeApp(ctx, cfg, logger, lp)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	return a.Run(ctx)
}

func migrate(cfg *config.Config, out io.Writer) error {
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	_, err = fmt.Fprintln(out, "schema up to date")
	return err
}
