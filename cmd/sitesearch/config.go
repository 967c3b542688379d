package main

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/oakridge-association/sitesearch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented sitesearch.toml with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteTemplate(configPath); err != nil {
			return err
		}
		cmd.Printf("✓ Wrote %s\n", configPath)
		return nil
	},
}

var saveEffective bool

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration after flag overrides",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if saveEffective {
			if err := cfg.Save(configPath); err != nil {
				return err
			}
			cmd.Printf("✓ Saved %s\n", configPath)
			return nil
		}
		data, err := toml.Marshal(cfg)
		if err != nil {
			return err
		}
		cmd.Print(string(data))
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&saveEffective, "save", false, "write the effective configuration back to the config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
