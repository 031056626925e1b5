package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/dvloznov/monomind/internal/config"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootConfig holds the persistent flags shared by every command.
type rootConfig struct {
	ConfigPath string
	LogLevel   string
	JSON       bool
}

func newRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "monomind",
		Short:         "MonoMind personal finance assistant",
		Long:          "Ask questions about your finances, inspect ledger metrics and check whether a purchase is affordable.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", os.Getenv("MONOMIND_CONFIG"), "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&rc.JSON, "json", false, "Print results as JSON")

	cmd.AddCommand(
		newAskCmd(rc),
		newMetricsCmd(rc),
		newAssessCmd(rc),
		newConfigCmd(rc),
	)

	return cmd
}

// newLogger writes to stderr so stdout stays machine readable.
func (rc *rootConfig) newLogger() zerolog.Logger {
	return logger.New(logger.Options{Level: rc.LogLevel, Writer: os.Stderr, Service: "monomind-cli"})
}

func (rc *rootConfig) setup(cmd *cobra.Command) (context.Context, zerolog.Logger) {
	log := rc.newLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logger.WithContext(ctx, log), log
}

// readConfig loads the configuration without requiring the language model
// settings.
func (rc *rootConfig) readConfig() (*config.Config, error) {
	return config.Read(rc.ConfigPath)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
