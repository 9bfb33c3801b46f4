package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	hverrors "github.com/hanviet/hvsearch/internal/errors"
	"github.com/hanviet/hvsearch/internal/output"
	"github.com/hanviet/hvsearch/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK      int
	format    string // "text", "json"
	threshold float64
}

// searchOutput is the JSON shape of a search.
type searchOutput struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
	Message string          `json:"message,omitempty"`
}

func newSearchCmd(g *globalOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Translate a Han passage",
		Long: `Find the closest Han passages in the index and print their Vietnamese
translations, best first.

A best score below the confidence threshold is reported as no suitable
translation in text output.`,
		Example: `  hvsearch search 學而時習之
  hvsearch search 學而時習之 --top-k 5
  hvsearch search 學而時習之 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, g, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Number of results (default: search.top_k)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", -1, "Confidence threshold (default: search.confidence_threshold)")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalOptions, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if opts.threshold < 0 {
		opts.threshold = cfg.Search.ConfidenceThreshold
	}

	engine, err := newEngine(cfg, slog.Default())
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	results, err := engine.Search(ctx, query, opts.topK)
	if err != nil {
		return userError(err)
	}

	if opts.format == "json" {
		res := searchOutput{Query: query, Results: make([]search.Result, len(results))}
		for i, r := range results {
			res.Results[i] = r.Rounded()
		}
		if len(results) == 0 {
			res.Message = hverrors.UserMessage(hverrors.OutcomeNoResults)
		}
		return out.JSON(res)
	}
	printResults(out, results, opts.threshold)
	return nil
}

// printResults writes results as text. A best score below threshold is
// reported as no suitable translation.
func printResults(out *output.Writer, results []search.Result, threshold float64) {
	if len(results) == 0 {
		out.Warning(hverrors.UserMessage(hverrors.OutcomeNoResults))
		return
	}
	if float64(results[0].Score) < threshold {
		out.Warningf("No suitable translation found (best score %.4f, model %s)", results[0].Score, results[0].Model)
		return
	}
	for i, r := range results {
		if i > 0 {
			out.Newline()
		}
		out.Statusf("🔎", "%.4f  [%s]", r.Score, r.Model)
		out.Statusf("", "  Han:         %s", r.HanOriginal)
		out.Statusf("", "  Translation: %s", r.Translation)
		if r.BestMatch != "" && r.BestMatch != r.Translation {
			out.Statusf("", "  Best match:  %s", r.BestMatch)
		}
	}
}

// userError logs err and returns the message a user should see.
func userError(err error) error {
	outcome := hverrors.Classify(err)
	slog.Error("search_failed",
		slog.String("outcome", string(outcome)),
		slog.String("code", hverrors.GetCode(err)),
		slog.String("error", err.Error()))
	return errors.New(hverrors.UserMessage(outcome))
}
