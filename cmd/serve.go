package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShussainML/schoolmealapp/internal/config"
	i18npkg "github.com/ShussainML/schoolmealapp/internal/i18n"
	loggerPkg "github.com/ShussainML/schoolmealapp/internal/logger"
	"github.com/ShussainML/schoolmealapp/internal/server"
	"github.com/ShussainML/schoolmealapp/pkg/pollinations"
)

func newServeCmd(version string, buildTime string) *cobra.Command {
	return &cobra.Command{
		Use:          "serve <config.toml>",
		Short:        "schoolmealapp serve starts the generation API server",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], version, buildTime)
		},
	}
}

func run(configFile string, version string, buildTime string) error {
	// Env overrides may come from a local .env file; its absence is fine.
	_ = godotenv.Load()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configFile)
	}

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if verbose {
		config.PrintConfig(cfg)
		cfg.LogConfig.Level = "debug"
	}

	logger, err := loggerPkg.InitLogger(cfg.LogConfig.Level, cfg.LogConfig.Format, cfg.LogConfig.File)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting schoolmealapp",
		zap.String("version", version),
		zap.String("build_time", buildTime),
		zap.String("config", configFile),
	)

	i18nMgr, err := i18npkg.NewManager(cfg.DefaultLanguage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize i18n: %w", err)
	}

	client := pollinations.NewClient(cfg.Generation.Endpoint, cfg.Generation.RequestTimeout(), logger)
	logger.Info("generation client ready",
		zap.String("endpoint", cfg.Generation.Endpoint),
		zap.Duration("request_timeout", client.Timeout()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, client, i18nMgr, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
