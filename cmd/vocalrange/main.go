// Package main provides the CLI entrypoint for vocalrange.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/vocalrange/internal/config"
	"github.com/verte-zerg/vocalrange/internal/logging"
	"github.com/verte-zerg/vocalrange/internal/store"
)

var (
	logLevel  string
	logFormat string
	dbPath    string
)

func main() {
	rootCmd := newRootCmd()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vocalrange",
		Short:         "Vocal range analysis from separated vocal stems",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "log format (console or json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $XDG_DATA_HOME/vocalrange/vocalrange.db)")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadFileConfig reads the config file and environment, then builds the
// logger from the merged log settings.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, *zap.Logger, error) {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	applyStringConfig(cmd, "log-format", &logFormat, fileCfg.Log.Format)
	logger, err := logging.New(logging.Options{Level: logLevel, Format: logFormat})
	if err != nil {
		return config.FileConfig{}, nil, err
	}
	return fileCfg, logger, nil
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		// Best-effort flush; stderr sync fails on some terminals.
		_ = err
	}
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# vocalrange configuration
# Uncomment a value to enable it. Environment variables (VOCALRANGE_*)
# override the file, and CLI flags override both.

[extract]
# input-suffix = %q    # Suffix of vocal stems to process
# output-suffix = %q          # Suffix of written contour files
# chunk-seconds = %.1f          # Seconds of audio per estimator call
# hop = %d                     # Samples between frames
# sample-rate = %d           # Decode rate through ffmpeg (0 = native)
# estimator = %q             # yin or command
# device = %q                # Passed to external estimators
# threshold = %.2f             # Minimum voicing confidence (0-1)
# smoothing = true             # Median-smooth voiced frames
# skip-existing = false        # Keep contours that already exist
# ffmpeg = %q             # ffmpeg binary for non-WAV input
# command = ""                 # Binary for the command estimator
# command-args = []            # Args; {input} {rate} {hop} {device} {threshold} {smoothing} are substituted

[analyze]
# pattern = %q             # Contour file name pattern
# persistence = %d              # Frames a note must hold to count
# bins = 0                     # Histogram bins (0 = one per semitone)
# no-store = false             # Skip saving runs to the database

[log]
# level = "info"               # debug, info, warn, error
# format = "console"           # console or json
`,
		defaultInputSuffix,
		defaultOutputSuffix,
		defaultChunkSeconds,
		defaultHop,
		defaultSampleRate,
		defaultEstimator,
		defaultDevice,
		defaultThreshold,
		defaultFFmpeg,
		defaultPattern,
		defaultPersistence,
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
