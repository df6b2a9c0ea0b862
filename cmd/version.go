package cmd

import (
	"fmt"

	"github.com/praetorian-inc/vantage/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of Vantage",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.FullVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
