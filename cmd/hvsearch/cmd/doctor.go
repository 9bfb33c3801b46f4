package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/output"
	"github.com/hanviet/hvsearch/internal/persist"
	"github.com/hanviet/hvsearch/internal/preflight"
)

func newDoctorCmd(g *globalOptions) *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the index and models are reachable",
		Long: `Load the configured index and every embedding provider and report what
works. Only a missing or invalid index is fatal; an unavailable model
means queries use the remaining models or substring matching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDoctor(ctx, cmd, g, jsonOutput, verbose)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")

	return cmd
}

type doctorOutput struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func runDoctor(ctx context.Context, cmd *cobra.Command, g *globalOptions, jsonOutput, verbose bool) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := slog.Default()

	mgr, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Close() }()

	remote := false
	if loc, err := persist.ParseLocator(cfg.Index.Source); err == nil {
		remote = loc.Remote()
	}

	checker := preflight.New(preflight.WithOutput(cmd.OutOrStdout()), preflight.WithVerbose(verbose))
	results := checker.RunAll(ctx, preflight.Target{
		Loader:   newStore(cfg, logger),
		Locator:  cfg.Index.Source,
		Models:   mgr,
		CacheDir: cfg.Index.CacheDir,
		Remote:   remote,
	})

	if jsonOutput {
		if err := output.New(cmd.OutOrStdout()).JSON(doctorOutput{
			Status: checker.SummaryStatus(results),
			Checks: results,
		}); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return fmt.Errorf("system check failed")
	}
	return nil
}
