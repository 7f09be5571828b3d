// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdb-tracker CLI.
//
// pdb-tracker finds structure entries released since a date, enriches each
// with descriptive metadata and sequence cross-references, and writes one
// tabular artifact per run.
//
// Exit codes: 0 success, 1 invalid input, 2 discovery service unavailable,
// 3 any other failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/pdb-tracker/internal/logger"
	"github.com/pdiddy/pdb-tracker/internal/metrics"
	"github.com/pdiddy/pdb-tracker/internal/secrets"
	"github.com/pdiddy/pdb-tracker/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitInvalid     = 1
	exitUnavailable = 2
	exitFailure     = 3
)

// runEnv is the per-invocation state built before any subcommand runs.
type runEnv struct {
	cfg     types.PipelineConfig
	log     *zap.Logger
	metrics *metrics.Recorder
	runID   string
}

// env is populated by the root command's PersistentPreRunE.
var env *runEnv

// rootCmd is the base command for the pdb-tracker CLI.
var rootCmd = &cobra.Command{
	Use:   "pdb-tracker",
	Short: "Track newly released PDB entries and enrich them with metadata",
	Long: `pdb-tracker discovers structure entries released on or after a date,
enriches each one with title, citation, resolution, experimental method, and
UniProt cross-references, and writes the result as a CSV (or parquet) file.

Subcommands: run (discover + enrich), discover (identifier list only),
enrich (from an identifier list), config, and version.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pdb-tracker.yaml or ~/.config/pdb-tracker/config.yaml)")
	pf.String("output-dir", "", "directory for output artifacts")
	pf.String("format", "", "output format: csv or parquet")
	pf.Int("workers", 0, "concurrent enrichment workers (1-64)")
	pf.Duration("interval", 0, "minimum delay between requests to one upstream service")
	pf.String("log-env", "", "log encoding: prod, dev, or local")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("metrics-addr", "", "serve /metrics and /healthz on this address while running")
	pf.Duration("metrics-linger", 0, "keep the metrics endpoint up this long after the run")
	pf.Bool("publish", false, "upload the artifact to the configured object store")

	bindFlag("output.dir", "output-dir")
	bindFlag("output.format", "format")
	bindFlag("enrichment.workers", "workers")
	bindFlag("enrichment.request_interval", "interval")
	bindFlag("logging.env", "log-env")
	bindFlag("logging.level", "log-level")
	bindFlag("metrics.addr", "metrics-addr")
	bindFlag("metrics.linger", "metrics-linger")
	bindFlag("publish.enabled", "publish")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &types.InvalidInputError{Input: "flags", Reason: err.Error()}
	})
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

// setDefaults registers every configuration key so environment variables
// and Unmarshal see them.
func setDefaults(v *viper.Viper) {
	userAgent := "pdb-tracker/" + version

	v.SetDefault("discovery.search_url", "")
	v.SetDefault("discovery.page_size", 0)
	v.SetDefault("discovery.timeout", 30*time.Second)
	v.SetDefault("discovery.user_agent", userAgent)
	v.SetDefault("discovery.max_retries", 5)

	v.SetDefault("enrichment.entry_url", "")
	v.SetDefault("enrichment.mapping_url", "")
	v.SetDefault("enrichment.request_interval", 100*time.Millisecond)
	v.SetDefault("enrichment.workers", 1)
	v.SetDefault("enrichment.timeout", 30*time.Second)
	v.SetDefault("enrichment.user_agent", userAgent)
	v.SetDefault("enrichment.max_retries", 5)

	v.SetDefault("output.dir", ".")
	v.SetDefault("output.format", string(types.FormatCSV))

	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")

	v.SetDefault("logging.env", "local")
	v.SetDefault("logging.level", "")

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.linger", time.Duration(0))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdb-tracker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdb-tracker"))
		}
	}

	setDefaults(viper.GetViper())
	viper.SetEnvPrefix("PDB_TRACKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes and validates the effective configuration. Credentials
// missing from config and environment are taken from secrets.
func loadConfig(v *viper.Viper, loaded map[string]string) (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.PipelineConfig{}, &types.InvalidInputError{Input: "configuration", Reason: "decoding", Err: err}
	}
	secrets.ApplyPublish(&cfg.Publish, loaded)
	if err := cfg.Validate(); err != nil {
		return types.PipelineConfig{}, err
	}
	return cfg, nil
}

// setup loads secrets and configuration, then builds the logger and metrics
// recorder shared by the subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	bootLog, err := logger.NewLogger(viper.GetString("logging.env"), viper.GetString("logging.level"))
	if err != nil {
		return &types.InvalidInputError{Input: "logging", Reason: "building logger", Err: err}
	}

	loaded, err := secrets.Load(secrets.DefaultDir, bootLog)
	if err != nil {
		return err
	}
	if len(loaded) > 0 {
		keys := make([]string, 0, len(loaded))
		for k := range loaded {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		bootLog.Debug("loaded secrets", zap.Strings("keys", keys))
	}

	cfg, err := loadConfig(viper.GetViper(), loaded)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := bootLog.With(zap.String("run_id", runID))
	env = &runEnv{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New(),
		runID:   runID,
	}
	cmd.SetContext(logger.ContextWithLogger(cmd.Context(), log))
	return nil
}

// exitCode maps a command error onto the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, types.ErrInvalidInput):
		return exitInvalid
	case types.IsDiscoveryFailure(err):
		return exitUnavailable
	default:
		return exitFailure
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if env != nil {
		_ = env.log.Sync()
	}
	os.Exit(exitCode(err))
}
