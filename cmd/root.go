package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cx-datamart/acreage-cli/internal/config"
	"github.com/cx-datamart/acreage-cli/internal/fetcher"
	"github.com/cx-datamart/acreage-cli/internal/resilience"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "acreage-cli",
	Short: "USDA FSA crop acreage archive retriever",
	Long: "Finds the latest FSA crop acreage ZIP for a crop year on the FOIA index page,\n" +
		"resolves landing pages to the real archive, downloads it, and preps the\n" +
		"extracted workbooks for the data mart.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// newTransport builds the resilient HTTP transport from config.
func newTransport() *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:       cfg.HTTP.UserAgent,
		DialTimeout:     secs(cfg.HTTP.DialTimeoutSecs),
		GetTimeout:      secs(cfg.HTTP.GetTimeoutSecs),
		HeadTimeout:     secs(cfg.HTTP.HeadTimeoutSecs),
		DownloadTimeout: secs(cfg.HTTP.DownloadTimeoutSecs),
		Retry: resilience.FromRetryConfig(
			cfg.HTTP.MaxAttempts,
			cfg.HTTP.InitialBackoffMs,
			cfg.HTTP.MaxBackoffMs,
			cfg.HTTP.BackoffMultiplier,
			-1,
		),
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
