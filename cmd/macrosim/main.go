// Command macrosim runs side-by-side agent-based macroeconomies.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/talgya/macrosim/internal/config"
)

var (
	configFile string
	logLevel   string
	logFormat  string

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "macrosim",
		Short: "Agent-based macroeconomic simulator",
		Long: `macrosim advances one or more closed economies of workers and firms in
lockstep, one period at a time, so their paths can be compared.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override logging.format (text or json)")

	rootCmd.AddCommand(newRunCmd(), newServeCmd(), newConfigCmd(), newReplayCmd())

	if err := rootCmd.Execute(); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Logging.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", config.ErrInvalid, cfg.Logging.Format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
