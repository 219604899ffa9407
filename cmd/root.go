package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tablero/internal/catalog"
	"tablero/internal/config"
)

var (
	// Set during PersistentPreRunE
	cfg *config.Config

	// Persistent flags
	envFile     string
	catalogFile string
)

var rootCmd = &cobra.Command{
	Use:   "tablero",
	Short: "Role-aware browser and editor for PostgreSQL tables",
	Long: `tablero - Role-aware browser and editor for PostgreSQL tables

Serves a small web application that lists, filters, creates, updates and
deletes rows of the tables declared in its catalog. Every request is checked
against a static role policy before any SQL is built.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		if cmd.Name() == policyCmd.Name() {
			cfg, err = config.Read(envFile)
		} else {
			cfg, err = config.Load(envFile)
		}
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg.CatalogFile = resolveString(catalogFile, cfg.CatalogFile)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file read before the process environment")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "YAML table catalog (default: CATALOG_FILE or the built-in catalog)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(policyCmd)
}

// resolveString returns the first non-empty value.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// newLogger builds a JSON production logger, or a console one at debug level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
