package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/copyforge/copyforge/internal/api"
	"github.com/copyforge/copyforge/internal/config"
	"github.com/copyforge/copyforge/internal/home"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the copyforge configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config to the home directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", h.ConfigPath())
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and
COPYFORGE_ environment overrides are merged. API keys are shown as
written, before ${ENV_VAR} expansion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		cm, err := loadConfig(h, logger)
		if err != nil {
			return err
		}
		if used := cm.ConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "# from %s\n", used)
		}
		return api.OutputTo(cmd.OutOrStdout(), api.GetOutputFormat(), cm.Get())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
