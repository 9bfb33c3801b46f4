// Package cmd provides the CLI commands for hvsearch.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hanviet/hvsearch/internal/config"
	"github.com/hanviet/hvsearch/internal/logging"
	"github.com/hanviet/hvsearch/internal/profiling"
	"github.com/hanviet/hvsearch/pkg/version"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	index      string
	debug      bool
	logLevel   string
	profile    profiling.Options

	loggingCleanup func()
	profiler       *profiling.Session
}

// NewRootCmd creates the root command for the hvsearch CLI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "hvsearch",
		Short: "Han to Vietnamese translation retrieval",
		Long: `hvsearch finds the closest Han (Classical Chinese) passages in an aligned
bilingual corpus and returns their Vietnamese translations.

Queries are encoded by every configured embedding model and answered by
cosine similarity over a prebuilt index. When no model can answer, a
simple substring matcher keeps the service useful.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("hvsearch version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: user config then .hvsearch.yaml)")
	cmd.PersistentFlags().StringVar(&opts.index, "index", "", "Index locator: path, http(s) URL or s3://bucket/key")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.hvsearch/logs/")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if err := opts.startLogging(); err != nil {
			return err
		}
		return opts.startProfiling()
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		err := opts.stopProfiling()
		opts.stopLogging()
		return err
	}

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newReplCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newDoctorCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig loads the explicit --config file, or the layered configuration
// for the working directory, then applies --index.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFile(o.configPath)
	} else {
		dir, wdErr := os.Getwd()
		if wdErr != nil {
			dir = "."
		}
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}
	if o.index != "" {
		cfg.Index.Source = o.index
	}
	return cfg, nil
}

// startLogging installs the default logger. Logs go to stderr and, when
// configured or with --debug, to a rotating file. Stdout is left to command
// output and the MCP transport.
func (o *globalOptions) startLogging() error {
	logCfg := logging.DefaultConfig()
	if cfg, err := o.loadConfig(); err == nil {
		logCfg.Level = cfg.Logging.Level
		logCfg.Format = cfg.Logging.Format
		logCfg.FilePath = cfg.Logging.File
		logCfg.MaxSizeMB = cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = cfg.Logging.MaxFiles
	}
	if o.debug {
		debugCfg := logging.DebugConfig()
		logCfg.Level = debugCfg.Level
		if logCfg.FilePath == "" {
			logCfg.FilePath = debugCfg.FilePath
		}
	}
	if o.logLevel != "" {
		logCfg.Level = o.logLevel
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup
	if o.debug {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", logCfg.FilePath),
			slog.String("version", version.Version))
	}
	return nil
}

func (o *globalOptions) stopLogging() {
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

func (o *globalOptions) startProfiling() error {
	if !o.profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(o.profile)
	if err != nil {
		return err
	}
	o.profiler = s
	return nil
}

func (o *globalOptions) stopProfiling() error {
	if o.profiler == nil {
		return nil
	}
	err := o.profiler.Stop()
	o.profiler = nil
	return err
}
