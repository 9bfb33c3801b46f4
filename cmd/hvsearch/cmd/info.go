package cmd

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/output"
)

// indexInfo is the JSON shape of the info command.
type indexInfo struct {
	Locator   string       `json:"locator"`
	Records   int          `json:"records"`
	Device    string       `json:"device,omitempty"`
	CaseFold  bool         `json:"case_fold"`
	Stopwords []string     `json:"stopwords,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Matrices  []matrixInfo `json:"matrices"`
}

type matrixInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Rows       int    `json:"rows"`
	Dimensions int    `json:"dimensions"`
}

func newInfoCmd(g *globalOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show what an index contains",
		Long:  `Load the configured index and print its record count, embedding matrices and build device.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			ix, err := newStore(cfg, slog.Default()).Load(cmd.Context(), cfg.Index.Source)
			if err != nil {
				return err
			}

			meta := ix.Meta()
			info := indexInfo{
				Locator:   cfg.Index.Source,
				Records:   ix.RecordCount(),
				Device:    meta.Device,
				CreatedAt: meta.CreatedAt,
				Matrices:  []matrixInfo{},
			}
			if n := meta.Normalization; n != nil {
				info.CaseFold = n.CaseFold
				info.Stopwords = n.Stopwords
			}
			for _, id := range ix.Providers() {
				m, _ := ix.Matrix(id)
				info.Matrices = append(info.Matrices, matrixInfo{
					Provider:   id,
					Model:      meta.Models[id],
					Rows:       len(m),
					Dimensions: m.Dimensions(),
				})
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(info)
			}

			out.Statusf("📦", "Index: %s", info.Locator)
			out.Statusf("", "Records:   %d", info.Records)
			if info.Device != "" {
				out.Statusf("", "Device:    %s", info.Device)
			}
			out.Statusf("", "Case fold: %t", info.CaseFold)
			if len(info.Stopwords) > 0 {
				out.Statusf("", "Stopwords: %s", strings.Join(info.Stopwords, ", "))
			}
			if !info.CreatedAt.IsZero() {
				out.Statusf("", "Built:     %s", info.CreatedAt.Format(time.RFC3339))
			}
			if len(info.Matrices) == 0 {
				out.Warning("No embedding matrices; queries use substring matching only")
				return nil
			}
			for _, m := range info.Matrices {
				out.Statusf("🧮", "%s (%s): %d x %d", m.Provider, m.Model, m.Rows, m.Dimensions)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
