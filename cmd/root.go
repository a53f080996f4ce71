// Package cmd provides the command-line interface of luascan.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"luascan/internal/application/common/slogger"
	"luascan/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     *config.Config
	v       = viper.New() //nolint:gochecknoglobals // flags of the root command bind to this instance
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

// newRootCmd creates the root command with its global flags.
func newRootCmd() *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "luascan",
		Short: "A lexical scanner for Lua function definitions",
		Long: `luascan finds Lua function definitions by lexical scanning, without a full
Lua grammar. It reports the nested function tree of a source, the globally
visible functions, and unterminated definitions.

The system supports:
- One-shot reports as JSON, YAML or text
- Indexing functions into PostgreSQL
- Publishing indexed events with NATS JetStream
- OpenTelemetry scan metrics`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				return runVersion(cmd, false)
			}
			return cmd.Help()
		},
	}

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")

	// Global flags
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")
	cmd.PersistentFlags().Bool("metrics", false, "Record OpenTelemetry scan metrics and log a summary")

	// Bind flags to viper
	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"log.format":      "log-format",
		"metrics.enabled": "metrics",
	} {
		if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
		}
	}

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(
		newParseCmd(),
		newGlobalsCmd(),
		newIndexCmd(),
		newLookupCmd(),
		newVersionCmd(),
	)
}

// loadConfig reads the configuration once and configures the global logger.
// Commands that do not need configuration never call it.
func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Environment variables
	v.SetEnvPrefix("LUASCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	loaded, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	if err := slogger.Configure(loaded.Log.Level, loaded.Log.Format); err != nil {
		return nil, fmt.Errorf("failed to configure logger: %w", err)
	}

	cfg = loaded
	return cfg, nil
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}
