// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTableCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print or export the coefficient table",
		Long: "Print the configured coefficient table as YAML, or write it to a file that\n" +
			"equalizer.table_path can point at.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.cfg.Equalizer.Table()
			if err != nil {
				return err
			}
			if output != "" {
				if err := table.Save(output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bands to %s\n", table.NumBands(), output)
				return nil
			}

			data, err := table.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write the table to this file instead of standard output")
	return cmd
}
