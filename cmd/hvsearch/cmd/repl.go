package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/output"
)

func newReplCmd(g *globalOptions) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Translate passages interactively",
		Long: `Read Han passages line by line and print the best translation for each.
Type quit, exit or q to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), g, topK)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of results (default: search.top_k)")

	return cmd
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

func runRepl(ctx context.Context, in io.Reader, w io.Writer, g *globalOptions, topK int) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg, slog.Default())
	if err != nil {
		return err
	}

	out := output.New(w)
	out.Status("📖", "Enter a Han passage (quit, exit or q to leave)")

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		_, _ = fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isQuit(line) {
			break
		}

		results, err := engine.Search(ctx, line, topK)
		if err != nil {
			out.Error(userError(err).Error())
			continue
		}
		printResults(out, results, cfg.Search.ConfidenceThreshold)
	}
	_, _ = fmt.Fprintln(w)
	return scanner.Err()
}
