package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/loungecore/internal/app"
	"github.com/vovakirdan/loungecore/internal/config"
	"github.com/vovakirdan/loungecore/internal/log"
)

var serveFlags struct {
	addr     string
	logLevel string
	public   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bouncer",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.public, "public", false, "keep nothing on disk")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	bootLog := log.New("info", "console")

	cfg, path, err := config.Load(bootLog, configFile)
	if err != nil {
		return err
	}

	var overrides config.Config
	overrides.Addr = serveFlags.addr
	overrides.LogLevel = serveFlags.logLevel
	cfg.UpdateFrom(overrides)
	if cmd.Flags().Changed("public") {
		cfg.Public = serveFlags.public
	}

	logger := log.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", path).Bool("public", cfg.Public).Msg("configuration loaded")

	application, err := app.New(&cfg, afero.NewOsFs(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.Addr).Msg("starting loungecore")
	if err := application.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
