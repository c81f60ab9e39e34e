package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/spf13/cobra"
	"github.com/ukaji3/xlflow-go/internal/config"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/models"
	"go.uber.org/zap"
)

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}
	return nil
}

// writeResult writes the workbook result to outputPath, or stdout when
// neither an output path nor a sheets directory is given.
func writeResult(cmd *cobra.Command, res *models.WorkbookResult, outputPath, sheetsDir string, pretty bool) error {
	if res == nil {
		return nil
	}
	switch {
	case outputPath != "":
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		defer file.Close()
		if err := writeJSON(file, res, pretty); err != nil {
			return err
		}
	case sheetsDir == "":
		if err := writeJSON(cmd.OutOrStdout(), res, pretty); err != nil {
			return err
		}
	}

	if sheetsDir != "" {
		if err := writeSheetFiles(res, sheetsDir, pretty); err != nil {
			return fmt.Errorf("failed to write sheet files: %w", err)
		}
	}
	return nil
}

func writeSheetFiles(res *models.WorkbookResult, dir string, pretty bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, sheet := range res.Sheets {
		file, err := os.Create(filepath.Join(dir, sheetFileName(sheet)))
		if err != nil {
			return err
		}
		err = writeJSON(file, sheet, pretty)
		file.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// sheetFileName prefixes the index so that sheets whose names differ only
// in characters invalid in file names do not collide.
func sheetFileName(s models.SheetResult) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s.Name)
	return fmt.Sprintf("%02d_%s.json", s.Index, name)
}

// publishMetrics pushes or writes the run's metrics. Failures are logged
// and do not fail the run.
func publishMetrics(reg *prometheus.Registry, cfg config.MetricsConfig, log *zap.Logger) {
	if cfg.Pushgateway != "" {
		err := push.New(cfg.Pushgateway, cfg.JobName).Gatherer(reg).Push()
		if err != nil {
			log.Warn("metrics push failed", zap.String("url", cfg.Pushgateway), zap.Error(err))
		}
	}
	if cfg.Textfile != "" {
		if err := prometheus.WriteToTextfile(cfg.Textfile, reg); err != nil {
			log.Warn("metrics textfile write failed", zap.String("path", cfg.Textfile), zap.Error(err))
		}
	}
}
