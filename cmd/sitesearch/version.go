package main

import (
	"github.com/spf13/cobra"

	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("%s (index schema v%d)\n", version.BuildVersion(), indexing.IndexSchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
