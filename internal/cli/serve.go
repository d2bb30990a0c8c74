package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/partsflow/gatekeeper/internal/config"
	"github.com/partsflow/gatekeeper/internal/server"
)

var serveConfigPath string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config YAML")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admission-gated catalog server",
	Long:  "Runs the HTTP server: catalog pages and API behind the admission gate,\nthe browser challenge endpoint, health and metrics.\nThe bot-signature file is hot-reloaded while serving.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, configHash, err := config.Load(serveConfigPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	srv, err := server.New(cfg, configHash)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.WatchSignatures(ctx); err != nil {
		log.Warn().Err(err).Msg("signature hot-reload disabled")
	}

	log.Info().
		Str("configHash", configHash).
		Fields(cfg.Redacted()).
		Msg("starting gatekeeper")

	return srv.Start(ctx)
}
