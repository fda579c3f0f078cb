package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvisser/tempo/internal/config"
	"github.com/kvisser/tempo/internal/core/model"
	"github.com/kvisser/tempo/internal/data/store"
	"github.com/kvisser/tempo/internal/util"
)

var (
	// Logging related
	debug   bool
	logFile string

	// Data path and configuration
	dataDir    string
	configPath string
	timezone   string

	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "tempo",
		Short: "Personal time tracking from the command line",
		Long: `tempo records worked time as frames against projects and tasks,
stores everything in plain text files and aggregates it on demand.

Examples:
  tempo project add website              # Create a project
  tempo start website                    # Start the timer
  tempo stop                             # Stop it and record the frame
  tempo log website 9:00 12:30           # Record past work directly
  tempo report --group-by day            # Aggregate worked time per day
  tempo report --project website -o json # Machine-readable output`,
		SilenceUsage:      true,
		PersistentPreRunE: initRuntime,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"Configuration file path")
	rootCmd.PersistentFlags().StringVar(&dataDir, "dir", "",
		"Data directory path (overrides the config file)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone for display (e.g., Europe/Amsterdam, UTC)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"Log file path (overrides the config file)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging to the console")
}

// initRuntime loads the config file, overlays the global flags and brings up
// logging and the time provider. It runs before every subcommand.
func initRuntime(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if cfg.LogFile != "" {
		expanded, err := config.ExpandPath(cfg.LogFile)
		if err != nil {
			return err
		}
		cfg.LogFile = expanded
	}
	util.InitLogger(cfg.LogLevel, cfg.LogFile, cfg.Debug)
	return util.InitializeTimeProvider(cfg.Timezone)
}

// openStore opens the configured data directory.
func openStore() (*store.Store, error) {
	dir, err := config.ExpandPath(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(dir)
	if err != nil {
		var cerr *store.CorruptError
		if errors.As(err, &cerr) {
			return nil, fmt.Errorf("%w\nrepair %s by hand before retrying", err, filepath.Clean(dir))
		}
		return nil, err
	}
	return s, nil
}

// parseTimeArg resolves a timestamp argument relative to the configured
// clock. Empty input yields the zero time.
func parseTimeArg(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return util.ParseTimestamp(s, util.GetTimeProvider().Now())
}

// resolveFrame turns a frame id or prefix argument into a full id.
func resolveFrame(s *store.Store, arg string) (string, error) {
	id, err := s.ResolveFrameID(arg)
	if err != nil {
		if errors.Is(err, model.ErrUnknownFrame) {
			return "", fmt.Errorf("no frame matches %q", arg)
		}
		return "", err
	}
	return id, nil
}

func Execute() error {
	return rootCmd.Execute()
}
