// Package cli implements hotelctl, the operator tool for seeding rooms,
// creating admins, taking backups and exporting bookings.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
}

// env is what every command needs once config is loaded.
type env struct {
	cfg    *config.Config
	db     *database.DB
	logger *zerolog.Logger
	closer io.Closer
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "hotelctl",
		Short:         "Hotel booking operations tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config.yaml")

	root.AddCommand(
		seedCmd(opts),
		createAdminCmd(opts),
		backupCmd(opts),
		exportCmd(opts),
		syncCmd(opts),
	)
	return root
}

// Execute runs hotelctl with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}

func openEnv(opts *options) (*env, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// logs go to stderr, stdout carries command output only
	logCfg := cfg.Logging
	if logCfg.Output == "" || logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	baseLogger, closer, err := logging.New(logCfg, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "hotelctl")

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, db: db, logger: logger, closer: closer}, nil
}
