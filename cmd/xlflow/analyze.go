package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/ukaji3/xlflow-go/internal/config"
	"github.com/ukaji3/xlflow-go/pkg/xlflow"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/cache"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/metrics"
	"github.com/ukaji3/xlflow-go/pkg/xlflow/parser"
	"go.uber.org/zap"
)

type analyzeFlags struct {
	sheets      []int
	noSkipEmpty bool
	noSkipIndex bool
	maxRows     int
	noStats     bool
	tenant      string
	maxCalls    int
	workers     int
	callTimeout string
	pretty      bool
	output      string
	sheetsDir   string
	progress    bool
	pushgateway string
	textfile    string
}

func newAnalyzeCmd() *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze [input.xlsx]",
		Short: "Analyze all relevant sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, f, args[0])
		},
	}

	cmd.Flags().IntSliceVar(&f.sheets, "sheets", nil, "Only analyze these 0-based sheet indices (e.g. 0,2)")
	cmd.Flags().BoolVar(&f.noSkipEmpty, "no-skip-empty", false, "Analyze empty sheets too")
	cmd.Flags().BoolVar(&f.noSkipIndex, "no-skip-index", false, "Analyze index and cover sheets too")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "Maximum rows extracted per sheet (0: no limit)")
	cmd.Flags().BoolVar(&f.noStats, "no-stats", false, "Skip per-column statistics")
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "Tenant id passed to field mapping")
	cmd.Flags().IntVar(&f.maxCalls, "max-calls", 0, "Maximum concurrent detection and mapping calls")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Extraction workers (0: one per CPU)")
	cmd.Flags().StringVar(&f.callTimeout, "call-timeout", "", "Timeout of each detection and mapping call (e.g. 30s)")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "Pretty-print JSON output")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&f.sheetsDir, "sheets-dir", "", "Directory for per-sheet output files")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "Report progress on stderr")
	cmd.Flags().StringVar(&f.pushgateway, "pushgateway", "", "Push metrics to this Prometheus Pushgateway URL")
	cmd.Flags().StringVar(&f.textfile, "metrics-textfile", "", "Write metrics in text format to this file")
	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *analyzeFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("no-skip-empty") {
		cfg.Filter.SkipEmpty = !f.noSkipEmpty
	}
	if flags.Changed("no-skip-index") {
		cfg.Filter.SkipIndexSheets = !f.noSkipIndex
	}
	if flags.Changed("max-rows") {
		cfg.Extract.MaxRowsPerSheet = f.maxRows
	}
	if flags.Changed("no-stats") {
		cfg.Extract.CalculateStats = !f.noStats
	}
	if flags.Changed("tenant") {
		cfg.Job.TenantID = f.tenant
	}
	if flags.Changed("max-calls") {
		cfg.Gate.MaxConcurrentCalls = f.maxCalls
	}
	if flags.Changed("workers") {
		cfg.Extract.Workers = f.workers
	}
	if flags.Changed("call-timeout") {
		cfg.Gate.CallTimeout = f.callTimeout
	}
	if flags.Changed("pushgateway") {
		cfg.Metrics.Pushgateway = f.pushgateway
	}
	if flags.Changed("metrics-textfile") {
		cfg.Metrics.Textfile = f.textfile
	}
	return cfg.Validate()
}

func runAnalyze(cmd *cobra.Command, f *analyzeFlags, inputPath string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()
	if err := f.apply(cmd, cfg); err != nil {
		return err
	}
	timeout, err := cfg.CallTimeout()
	if err != nil {
		return err
	}

	workbook, err := readWorkbook(inputPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	rec, err := metrics.New(reg)
	if err != nil {
		return err
	}

	mapper := parser.NewAliasMapper(nil)
	for tenant, overrides := range cfg.Mapping.Overrides {
		mapper.SetOverrides(tenant, overrides)
	}
	detector := parser.NewDetector()
	detector.SampleSize = cfg.Detect.SampleSize

	ocfg := xlflow.Config{
		MaxConcurrentCalls: cfg.Gate.MaxConcurrentCalls,
		ExtractWorkers:     cfg.Extract.Workers,
		MaxHeaderRows:      cfg.Detect.MaxHeaderRows,
		CallTimeout:        timeout,
		IndexMarkers:       cfg.Filter.IndexMarkers,
		ReferenceMarkers:   cfg.Filter.ReferenceMarkers,
		Metrics:            rec,
		Logger:             log,
	}
	if cfg.Cache.Enabled {
		ocfg.Cache = cache.NewMemory(cfg.Cache.MaxEntries)
	}
	orch, err := xlflow.New(detector, mapper, parser.NewExecutor(), ocfg)
	if err != nil {
		return err
	}

	opts := xlflow.JobOptions{
		SheetIndices:    f.sheets,
		SkipEmpty:       cfg.Filter.SkipEmpty,
		SkipIndexSheets: cfg.Filter.SkipIndexSheets,
		MaxRowsPerSheet: cfg.Extract.MaxRowsPerSheet,
		CalculateStats:  cfg.Extract.CalculateStats,
		TenantID:        cfg.Job.TenantID,
		Filename:        filepath.Base(inputPath),
	}
	if f.progress {
		stderr := cmd.ErrOrStderr()
		opts.Progress = func(completed, total int, sheet string) {
			fmt.Fprintf(stderr, "[%d/%d] %s\n", completed, total, sheet)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, procErr := orch.Process(ctx, workbook, opts)

	if err := writeResult(cmd, res, f.output, f.sheetsDir, f.pretty); err != nil {
		return err
	}
	publishMetrics(reg, cfg.Metrics, log)

	switch {
	case procErr != nil:
		return procErr
	case !res.Success:
		return errors.New(res.Error)
	}
	log.Debug("analysis written", zap.String("output", f.output), zap.String("sheets_dir", f.sheetsDir))
	return nil
}
