package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/applyo/prospector/internal/task"
)

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the built-in agent task kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := task.LoadDefault()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tROUNDS\tTOOLS\tVERIFY\tCACHE")
			for _, k := range catalog.List() {
				verifyField, cacheInput := "-", "-"
				if k.Verify != nil {
					verifyField = k.Verify.Field
				}
				if k.Cache != nil {
					cacheInput = k.Cache.Input
				}
				toolList := strings.Join(k.Tools, ",")
				if toolList == "" {
					toolList = "-"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", k.Name, k.Rounds, toolList, verifyField, cacheInput)
			}
			return w.Flush()
		},
	}
}
