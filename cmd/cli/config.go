package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dvloznov/monomind/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "monomind.yaml"

func newConfigCmd(rc *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check configuration files",
	}

	cmd.AddCommand(
		newConfigInitCmd(rc),
		newConfigValidateCmd(rc),
	)
	return cmd
}

func newConfigInitCmd(rc *rootConfig) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rc.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = defaultConfigFile
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			if err := config.Default().SaveToFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set GEMINI_API_KEY (or llm.api_key) and DATABASE_URL before running.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigValidateCmd(rc *rootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Load the configuration and report problems",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := rc.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid.")
			fmt.Fprintf(out, "  llm:    %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
			fmt.Fprintf(out, "  ledger: %s\n", cfg.Ledger.Backend)
			fmt.Fprintf(out, "  memory: %s\n", cfg.Memory.Backend)
			return nil
		},
	}
}
