// Package main is the entry point for papertrader, a simulated stock trading
// web application.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/version"
	"github.com/aristath/papertrader/pkg/logger"
)

var (
	portFlag     int
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:           "papertrader",
	Short:         "Simulated stock trading web application",
	Long:          `Paper trading against a fixed quote catalog: sign up, buy and sell, and track a portfolio without real money.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Running the bare binary serves
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 0, "HTTP port (overrides PORT)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd, backupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Error().Err(err).Msg("papertrader exited with error")
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command-line overrides
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	return cfg, log, nil
}
