package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cx-datamart/acreage-cli/internal/acreage"
	"github.com/cx-datamart/acreage-cli/internal/warehouse"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the latest acreage archive for a crop year or range",
	Long: `Download the latest FSA crop acreage ZIP.

With --year, fetches a single crop year and exits with a distinct code:
  0  archive downloaded
  2  no candidates found for the year (available years are listed)
  3  candidates found but none resolved to an archive
  4  downloaded file was empty (partial removed)

Without --year, iterates from --from through --to sequentially; a failed
year is reported and the batch continues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		year, _ := cmd.Flags().GetString("year")
		from, _ := cmd.Flags().GetInt("from")
		to, _ := cmd.Flags().GetInt("to")
		outDir, _ := cmd.Flags().GetString("outdir")
		if outDir == "" {
			outDir = cfg.Acreage.OutputDir
		}

		var uploader warehouse.Uploader
		if cfg.Warehouse.DSN != "" {
			store, err := warehouse.NewPostgres(ctx, cfg.Warehouse.DSN, &cfg.Warehouse.Pool)
			if err != nil {
				return err
			}
			defer store.Close()
			uploader = store
		}

		orch := acreage.NewOrchestrator(newTransport(), acreage.Options{
			IndexURL:    cfg.Acreage.IndexURL,
			OutputDir:   outDir,
			ProgressOut: os.Stdout,
			Uploader:    uploader,
		})

		if year != "" {
			res, err := orch.RunYear(ctx, year)
			if err != nil {
				return eris.Wrapf(err, "fetch: crop year %s", year)
			}
			printResult(res)
			if !res.Success() {
				os.Exit(res.Outcome.ExitCode())
			}
			return nil
		}

		if from == 0 {
			from = cfg.Acreage.FirstYear
		}
		if to == 0 {
			to = time.Now().UTC().Year()
		}

		results, err := orch.RunRange(ctx, from, to)
		if err != nil {
			return eris.Wrap(err, "fetch: year range")
		}

		var failed int
		for _, res := range results {
			printResult(res)
			if !res.Success() {
				failed++
			}
		}
		fmt.Printf("\n%d/%d crop years downloaded\n", len(results)-failed, len(results))
		if failed > 0 {
			os.Exit(1)
		}
		return nil
	},
}

func printResult(res *acreage.DownloadResult) {
	switch res.Outcome {
	case acreage.OutcomeSuccess:
		asOf := "n/a"
		if res.AsOf != nil {
			asOf = res.AsOf.Format("2006-01-02")
		}
		fmt.Printf("%s: saved %s (%d bytes, as of %s)\n  from %s\n",
			res.Year, res.OutputPath, res.Bytes, asOf, res.ResolvedURL)
	case acreage.OutcomeNoCandidates:
		fmt.Printf("%s: %s\n", res.Year, res.Outcome)
		if len(res.AvailableYears) > 0 {
			fmt.Printf("  available crop years on page: %s\n", strings.Join(res.AvailableYears, ", "))
		}
	default:
		fmt.Printf("%s: %s", res.Year, res.Outcome)
		if res.FailureReason != "" {
			fmt.Printf(" (%s)", res.FailureReason)
		}
		fmt.Println()
	}

	zap.L().Debug("year finished",
		zap.String("run_id", res.RunID),
		zap.String("year", res.Year),
		zap.String("outcome", res.Outcome.String()),
	)
}

func init() {
	fetchCmd.Flags().StringP("year", "y", "", "crop year to download (e.g. 2025)")
	fetchCmd.Flags().Int("from", 0, "first crop year of a range (default: configured first year)")
	fetchCmd.Flags().Int("to", 0, "last crop year of a range (default: current year)")
	fetchCmd.Flags().StringP("outdir", "o", "", "output directory (default: configured output dir)")
	rootCmd.AddCommand(fetchCmd)
}
