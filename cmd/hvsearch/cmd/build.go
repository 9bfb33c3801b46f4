package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/config"
	"github.com/hanviet/hvsearch/internal/corpus"
	"github.com/hanviet/hvsearch/internal/embed"
	"github.com/hanviet/hvsearch/internal/output"
)

type buildOptions struct {
	csvPath string
	out     string
	demo    bool
}

func newBuildCmd(g *globalOptions) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an index from an aligned corpus",
		Long: `Build an index from an aligned Han/Vietnamese CSV corpus.

Every source sentence is normalized and encoded by each configured model.
A model that cannot be loaded is left out of the index; queries then rely
on the remaining models and the substring matcher.`,
		Example: `  # Build from a CSV file
  hvsearch build --csv han_viet.csv --out han_viet_index.gob

  # Write the three-record demo index
  hvsearch build --demo

  # Upload straight to an object store
  hvsearch build --csv han_viet.csv --out s3://corpora/han_viet_index.gob`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBuild(ctx, cmd, g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Aligned corpus CSV file")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output locator (default: index.source)")
	cmd.Flags().BoolVar(&opts.demo, "demo", false, "Build the built-in demo corpus")

	return cmd
}

func runBuild(ctx context.Context, cmd *cobra.Command, g *globalOptions, opts buildOptions) error {
	if opts.csvPath == "" && !opts.demo {
		return fmt.Errorf("either --csv or --demo is required")
	}
	if opts.csvPath != "" && opts.demo {
		return fmt.Errorf("--csv and --demo are mutually exclusive")
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if opts.out == "" {
		opts.out = cfg.Index.Source
	}
	logger := slog.Default()
	out := output.New(cmd.OutOrStdout())

	records, err := readRecords(cfg, opts)
	if err != nil {
		return err
	}
	out.Statusf("📄", "Read %d records", len(records))

	mgr, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	device := embed.ResolveDevice(configuredDevice(cfg))
	mgr.PinDevice(device)

	var progressMu sync.Mutex
	start := time.Now()
	ix, err := corpus.Build(ctx, records, mgr, corpus.BuildOptions{
		BatchSize:  cfg.Models.BatchSize,
		Normalizer: newNormalizer(cfg),
		Device:     device,
		Progress: func(provider string, done, total int) {
			progressMu.Lock()
			defer progressMu.Unlock()
			out.Progress(done, total, "Encoding with "+provider)
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := newStore(cfg, logger).Save(ctx, ix, opts.out); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	out.Successf("Index written to %s in %s", opts.out, time.Since(start).Round(time.Millisecond))
	if providers := ix.Providers(); len(providers) > 0 {
		for _, id := range providers {
			m, _ := ix.Matrix(id)
			out.Statusf("", "  %s: %d x %d", id, len(m), m.Dimensions())
		}
	} else {
		out.Warning("No model could be loaded; the index holds the corpus only and queries use substring matching")
	}
	return nil
}

func readRecords(cfg *config.Config, opts buildOptions) ([]corpus.Record, error) {
	if opts.demo {
		return corpus.DemoRecords(), nil
	}
	f, err := os.Open(opts.csvPath)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()
	return corpus.ReadCSV(f, buildColumns(cfg))
}
