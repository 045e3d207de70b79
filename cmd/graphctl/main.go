// Command graphctl is the CLI collaborator for the bitemporal graph
// engine: tenant lifecycle, tabular ingest, query, export, and a health
// probe against whichever backend the loaded configuration points at.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/coderisk/gkg/internal/config"
	"github.com/coderisk/gkg/internal/logging"
)

var (
	// Version information, set by build flags.
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "graphctl",
	Short: "graphctl operates a multi-tenant bitemporal knowledge graph",
	Long: `graphctl manages tenants, ingests tabular data, runs queries, and
exports graph data for a bitemporal knowledge-graph engine.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadContext,
}

func loadContext(cmd *cobra.Command, args []string) error {
	logger = logrus.New()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	// Engine packages (tenant, llmmerge) log through slog via
	// internal/logging; graphctl's own narration stays on logrus above.
	_ = logging.Initialize(logging.DebugConfig())

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Warn("failed to load config, using defaults")
		cfg = config.Default()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .gkg/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`graphctl {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(tenantCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
}
