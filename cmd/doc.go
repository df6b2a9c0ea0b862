package cmd

import (
	"os"

	"github.com/praetorian-inc/vantage/internal/message"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var docCmd = &cobra.Command{
	Use:   "gendoc [dir]",
	Short: "Generate Markdown documentation",
	Long:  `Generate Markdown documentation for the CLI and its subcommands (default directory ./docs).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "./docs"
		if len(args) == 1 {
			dir = args[0]
		}

		excludedCmds := []string{"gendoc", "completion", "mcp-server"}
		for _, c := range rootCmd.Commands() {
			for _, e := range excludedCmds {
				if c.Name() == e {
					rootCmd.RemoveCommand(c)
					break
				}
			}
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		rootCmd.DisableAutoGenTag = true
		if err := doc.GenMarkdownTree(rootCmd, dir); err != nil {
			return err
		}
		message.Success("Documentation generated in %s", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docCmd)
}
