package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cx-datamart/acreage-cli/internal/workbook"
)

var inventoryCmd = &cobra.Command{
	Use:   "inventory",
	Short: "List extracted workbooks and locate their header rows",
	Long: `Walk the output directory for Excel workbooks extracted from acreage
archives. For each readable workbook, locate the county data header row so
the cleaning collaborator knows where the rectangle starts. Legacy .xls and
.xlsb files are listed but not inspected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Acreage.OutputDir
		}

		files, err := workbook.List(dir)
		if err != nil {
			return eris.Wrap(err, "inventory")
		}
		if len(files) == 0 {
			fmt.Printf("no workbooks under %s\n", dir)
			return nil
		}

		var unreadable int
		for _, path := range files {
			year := workbook.CropYearFromFilename(path)
			if year == "" {
				year = "????"
			}

			if !workbook.Readable(path) {
				fmt.Printf("%s  %s  (format not inspectable)\n", year, path)
				unreadable++
				continue
			}

			row, err := workbook.DetectHeaderRow(path, cfg.Workbook.Sheet, cfg.Workbook.HeaderKeywords)
			if err != nil {
				fmt.Printf("%s  %s  header not found: %v\n", year, path, err)
				continue
			}
			fmt.Printf("%s  %s  header row %d\n", year, path, row)
		}

		fmt.Printf("\n%d workbook(s), %d not inspectable\n", len(files), unreadable)
		return nil
	},
}

func init() {
	inventoryCmd.Flags().String("dir", "", "directory holding extracted workbooks (default: configured output dir)")
	rootCmd.AddCommand(inventoryCmd)
}
