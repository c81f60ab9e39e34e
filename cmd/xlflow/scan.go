package main

import (
	"github.com/spf13/cobra"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/filter"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/scanner"
	"go.uber.org/zap"
)

// scanReport is the scan command's output: every preview and the filter's
// decision, without any inference call.
type scanReport struct {
	Sheets   []models.SheetPreview `json:"sheets"`
	Selected []int                 `json:"selected"`
	Skipped  []models.SkippedSheet `json:"skipped"`
}

func newScanCmd() *cobra.Command {
	var (
		sheets      []int
		noSkipEmpty bool
		noSkipIndex bool
		pretty      bool
	)
	cmd := &cobra.Command{
		Use:   "scan [input.xlsx]",
		Short: "Preview sheets and show which ones would be analyzed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			defer log.Sync()

			workbook, err := readWorkbook(args[0])
			if err != nil {
				return err
			}
			previews, err := scanner.New().Scan(workbook)
			if err != nil {
				return err
			}

			selected, skipped := filter.Apply(previews, filter.Options{
				SheetIndices:     sheets,
				SkipEmpty:        cfg.Filter.SkipEmpty && !noSkipEmpty,
				SkipIndexSheets:  cfg.Filter.SkipIndexSheets && !noSkipIndex,
				IndexMarkers:     cfg.Filter.IndexMarkers,
				ReferenceMarkers: cfg.Filter.ReferenceMarkers,
			})
			report := scanReport{Sheets: previews, Selected: []int{}, Skipped: skipped}
			for _, p := range selected {
				report.Selected = append(report.Selected, p.Index)
			}
			log.Debug("workbook scanned", zap.Int("sheets", len(previews)), zap.Int("selected", len(selected)))
			return writeJSON(cmd.OutOrStdout(), report, pretty)
		},
	}
	cmd.Flags().IntSliceVar(&sheets, "sheets", nil, "Only consider these 0-based sheet indices")
	cmd.Flags().BoolVar(&noSkipEmpty, "no-skip-empty", false, "Keep empty sheets")
	cmd.Flags().BoolVar(&noSkipIndex, "no-skip-index", false, "Keep index and cover sheets")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}
