package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ppiankov/heritage/internal/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the heritage site",
	Long: `Serve the monument grid, the historical timeline, monument pages and
the JSON API. Stops gracefully on SIGINT or SIGTERM.

Example:
  heritage serve --store-url https://xyz.supabase.co
  HERITAGE_STORE_API_KEY=... heritage serve --addr :3000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	svc, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}

	srv, err := web.New(svc, cfg.Server, logger.Named("web"))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting heritage",
		zap.String("version", Version),
		zap.String("addr", cfg.Server.Addr),
		zap.Bool("cache", cfg.Cache.Enabled))

	return srv.ListenAndServe(ctx)
}
