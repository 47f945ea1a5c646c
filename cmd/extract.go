package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cx-datamart/acreage-cli/internal/fetcher"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract downloaded acreage archives",
	Long: `Extract every *.zip in the output directory into a sibling directory
named after the archive. Existing extractions are skipped unless --overwrite
is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Acreage.OutputDir
		}
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		dirs, err := fetcher.ExtractAll(dir, overwrite)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		fmt.Printf("extracted %d archive(s) under %s\n", len(dirs), dir)
		return nil
	},
}

func init() {
	extractCmd.Flags().String("dir", "", "directory holding downloaded archives (default: configured output dir)")
	extractCmd.Flags().Bool("overwrite", false, "rebuild extractions that already exist")
	rootCmd.AddCommand(extractCmd)
}
