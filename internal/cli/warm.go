package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/heritage/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	warmConcurrency int
	warmFrom        string
	warmTimeout     time.Duration
)

// warmCmd represents the warm command
var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-fill the response cache with every monument page",
	Long: `Warm loads the monument list and every monument page (audio, gallery and
embeds) in parallel so the site answers from cache.

Slugs come from the data store, or from a file with one slug per line
(# starts a comment).

Example:
  heritage warm
  heritage warm --concurrency 8
  heritage warm --from slugs.txt`,
	Args: cobra.NoArgs,
	RunE: runWarm,
}

func init() {
	rootCmd.AddCommand(warmCmd)

	warmCmd.Flags().IntVar(&warmConcurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	warmCmd.Flags().StringVar(&warmFrom, "from", "", "read slugs from file instead of the data store")
	warmCmd.Flags().DurationVar(&warmTimeout, "timeout", 10*time.Minute, "total timeout for warm-up")
}

func runWarm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return fmt.Errorf("cache is disabled; nothing to warm")
	}

	svc, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), warmTimeout)
	defer cancel()

	var slugs []string
	if warmFrom != "" {
		slugs, err = worker.ReadSlugsFromFile(warmFrom)
	} else {
		slugs, err = svc.Slugs(ctx)
	}
	if err != nil {
		return fmt.Errorf("load slugs: %w", err)
	}

	workers := warmConcurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	logger.Info("warming cache", zap.Int("monuments", len(slugs)), zap.Int("workers", workers))

	start := time.Now()
	results := worker.NewWarmer(svc, workers).Warm(ctx, slugs)
	for _, r := range results {
		if r.Error != nil {
			logger.Warn("warm failed", zap.String("slug", r.Slug), zap.Error(r.Error))
		} else {
			logger.Debug("warmed", zap.String("slug", r.Slug), zap.Duration("duration", r.Duration))
		}
	}

	return reportWarm(cmd.OutOrStdout(), results, time.Since(start))
}

// reportWarm prints the summary and fails if any monument could not be loaded
func reportWarm(w io.Writer, results []*worker.WarmResult, elapsed time.Duration) error {
	failed := worker.Failed(results)
	ok := len(results) - failed

	fmt.Fprintf(w, "✓ Warmed %s of %s monuments in %s\n",
		humanize.Comma(int64(ok)), humanize.Comma(int64(len(results))), elapsed.Round(time.Millisecond))
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(w, "✗ %s: %v\n", r.Slug, r.Error)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d monuments failed", failed, len(results))
	}
	return nil
}
