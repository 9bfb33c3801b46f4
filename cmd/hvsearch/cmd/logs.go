package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/logging"
)

func newLogsCmd(g *globalOptions) *cobra.Command {
	var (
		lines  int
		level  string
		filter string
		file   string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Show the last entries of the hvsearch log file.

The file is logging.file from the configuration, or ~/.hvsearch/logs/hvsearch.log
as written with --debug.`,
		Example: `  hvsearch logs -n 100
  hvsearch logs --level warn
  hvsearch logs --filter provider_skipped`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				if cfg, err := g.loadConfig(); err == nil && cfg.Logging.File != "" {
					path = cfg.Logging.File
				} else {
					path = logging.DefaultLogPath()
				}
			}

			var pattern *regexp.Regexp
			if filter != "" {
				var err error
				if pattern, err = regexp.Compile(filter); err != nil {
					return fmt.Errorf("invalid filter pattern: %w", err)
				}
			}

			viewer := logging.NewViewer(logging.ViewerConfig{Level: level, Pattern: pattern}, cmd.OutOrStdout())
			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of entries to show")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&filter, "filter", "", "Keep entries matching this regular expression")
	cmd.Flags().StringVar(&file, "file", "", "Log file (default: logging.file or ~/.hvsearch/logs/hvsearch.log)")

	return cmd
}
