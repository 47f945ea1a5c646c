package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cx-datamart/acreage-cli/internal/warehouse"
	"github.com/cx-datamart/acreage-cli/internal/workbook"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load extracted workbooks into the warehouse",
	Long: `Read every inspectable workbook under the output directory and COPY its
county data rows into the configured warehouse destination. The first
workbook honors the requested write mode; the rest merge on the configured
conflict keys so re-running load never duplicates rows. Requires
warehouse.dsn to be configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Warehouse.DSN == "" {
			return eris.New("load: warehouse.dsn is not configured")
		}

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Acreage.OutputDir
		}
		modeStr, _ := cmd.Flags().GetString("mode")
		mode, err := warehouse.ParseWriteMode(modeStr)
		if err != nil {
			return err
		}

		files, err := workbook.List(dir)
		if err != nil {
			return eris.Wrap(err, "load")
		}

		store, err := warehouse.NewPostgres(cmd.Context(), cfg.Warehouse.DSN, &cfg.Warehouse.Pool)
		if err != nil {
			return err
		}
		defer store.Close()

		var loaded, skipped int
		for _, path := range files {
			if !workbook.Readable(path) {
				skipped++
				continue
			}

			row, err := workbook.DetectHeaderRow(path, cfg.Workbook.Sheet, cfg.Workbook.HeaderKeywords)
			if err != nil {
				fmt.Printf("skipping %s: %v\n", path, err)
				skipped++
				continue
			}

			table, err := workbook.ReadTable(path, cfg.Workbook.Sheet, row)
			if err != nil {
				return err
			}

			// Replace and fail apply to the first workbook only; from then
			// on rows are merged on the conflict keys (or appended when no
			// keys are configured) so re-running load stays idempotent.
			if mode == warehouse.Append && len(cfg.Warehouse.ConflictKeys) > 0 {
				err = store.UpsertTable(cmd.Context(), table, cfg.Warehouse.Destination, cfg.Warehouse.ConflictKeys)
			} else {
				err = store.UploadTable(cmd.Context(), table, cfg.Warehouse.Destination, mode)
			}
			if err != nil {
				return err
			}
			loaded++
			mode = warehouse.Append
		}

		fmt.Printf("loaded %d workbook(s) into %s, %d skipped\n", loaded, cfg.Warehouse.Destination, skipped)
		return nil
	},
}

func init() {
	loadCmd.Flags().String("dir", "", "directory holding extracted workbooks (default: configured output dir)")
	loadCmd.Flags().String("mode", "append", "write mode for the first workbook: replace, append, or fail")
	rootCmd.AddCommand(loadCmd)
}
