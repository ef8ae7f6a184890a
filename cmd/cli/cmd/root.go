package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/graph-analytics/pkg/config"
	"github.com/graph-analytics/pkg/pprof"
	"github.com/graph-analytics/pkg/telemetry"
	"github.com/graph-analytics/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool
	logger     utils.Logger
	appConfig  *config.Config

	// Pprof flags
	pprofEnabled  bool
	pprofDir      string
	pprofProfiles string

	pprofSession      *pprof.Session
	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "graph-analytics",
	Short: "Run parallel graph algorithms over edge lists",
	Long: `graph-analytics runs iterative, partitioned graph algorithms over edge-list
files and exports one row per node.

Supported algorithms:
  - k1coloring   : greedy parallel graph coloring
  - labelprop    : label propagation community detection
  - prim         : minimum or maximum spanning tree from a start node
  - kspanningtree: k trees from a spanning tree by cutting its heaviest edges
  - rwr          : random walk with restarts node sampling
  - randomwalk   : node2vec-style random walks

Runs are recorded in the configured database and exported rows are
uploaded to the configured storage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appConfig = cfg

		l, err := newLogger(cfg.Log, verbose, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		logger = l
		utils.SetGlobalLogger(logger)

		shutdown, err := telemetry.InitWithConfig(cmd.Context(), telemetry.LoadFromEnv().WithOverrides(cfg.Telemetry.Overrides()))
		if err != nil {
			logger.Warn("Tracing disabled: %v", err)
		}
		telemetryShutdown = shutdown

		if pprofEnabled {
			profiles, err := pprof.ParseProfileTypes(pprofProfiles)
			if err != nil {
				return err
			}
			session, err := pprof.Start(&pprof.Config{Dir: pprofDir, Prefix: cmd.Name(), Profiles: profiles})
			if err != nil {
				return err
			}
			pprofSession = session
			logger.Info("pprof collection started (profiles: %s, dir: %s)", pprofProfiles, pprofDir)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		stopProfiling()
		if telemetryShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetryShutdown(ctx); err != nil {
				logger.Warn("Failed to flush traces: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when a command fails
	stopProfiling()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: ./config.yaml, ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	// Pprof flags
	rootCmd.PersistentFlags().BoolVar(&pprofEnabled, "pprof", false, "Profile this process while the command runs")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "./pprof", "Output directory for pprof data")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profile types: cpu,heap,goroutine,block,mutex,allocs")

	// Set dynamic example using actual binary name
	binName := BinName()
	rootCmd.Example = `  # Color a graph and export the colors
  ` + binName + ` run -a k1coloring -i ./edges.txt --undirected -o auto

  # Sample 20% of a graph with random walks with restarts
  ` + binName + ` run -a rwr -i graphs/social.txt.zst --from-storage --sampling-ratio 0.2

  # Show recent runs and per-algorithm totals
  ` + binName + ` history --summary

  # Profile a spanning tree run
  ` + binName + ` run -a prim -i ./roads.txt --start-node 1 --pprof --pprof-profiles cpu,heap`
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	if logger == nil {
		return utils.GetGlobalLogger()
	}
	return logger
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// newLogger builds the logger described by cfg. verbose forces debug level.
func newLogger(cfg config.LogConfig, verbose bool, stderr io.Writer) (utils.Logger, error) {
	level := utils.ParseLogLevel(cfg.Level)
	if verbose {
		level = utils.LevelDebug
	}

	var l *utils.DefaultLogger
	switch strings.ToLower(cfg.OutputPath) {
	case "", "stderr":
		l = utils.NewDefaultLogger(level, stderr)
	case "stdout":
		l = utils.NewDefaultLogger(level, os.Stdout)
	default:
		fl, err := utils.NewFileLogger(level, cfg.OutputPath)
		if err != nil {
			return nil, err
		}
		l = fl
	}
	l.SetFormat(utils.ParseLogFormat(cfg.Format))
	return l, nil
}

func stopProfiling() {
	if pprofSession == nil {
		return
	}
	session := pprofSession
	pprofSession = nil

	paths, err := session.Stop()
	if err != nil {
		GetLogger().Warn("Failed to write profiles: %v", err)
	}
	for _, p := range paths {
		GetLogger().Info("pprof data saved to: %s", p)
	}
}
