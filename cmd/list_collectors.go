package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/praetorian-inc/vantage/internal/registry"
	"github.com/praetorian-inc/vantage/pkg/types"
	"github.com/spf13/cobra"
)

var listCollectorsCmd = &cobra.Command{
	Use:     "list-collectors",
	Aliases: []string{"list"},
	Short:   "Display available collectors grouped in a tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := registry.Default()
		if err != nil {
			return err
		}
		displayCollectorTree(cmd.OutOrStdout(), cat)
		return nil
	},
}

func displayCollectorTree(w io.Writer, cat *registry.Catalogue) {
	bold := color.New(color.Bold)
	dim := color.New(color.Faint)
	hierarchy := cat.Hierarchy()

	for _, g := range types.AllGroups {
		names := hierarchy[g]
		if len(names) == 0 {
			continue
		}

		fmt.Fprintf(w, "\n%s\n", bold.Sprint(g))
		for i, name := range names {
			c, ok := cat.FindByName(name)
			if !ok {
				continue
			}
			branch := "├─"
			if i == len(names)-1 {
				branch = "└─"
			}

			notes := c.Remote.String()
			if c.RequiresAdmin {
				notes += ", admin"
			}
			fmt.Fprintf(w, "%s %s - %s %s\n", branch, c.Name, c.Description, dim.Sprintf("(%s)", notes))
		}
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(listCollectorsCmd)
}
