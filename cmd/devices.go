// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"equalizer/internal/audio"
	"equalizer/internal/tui"
)

func newDevicesCommand(a *app) *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audio.Initialize(); err != nil {
				return err
			}
			defer audio.Terminate()

			out := cmd.OutOrStdout()
			if !pick {
				return audio.ListDevices(out)
			}

			sel, ok, err := tui.PickDevice(a.cfg.Audio.SampleRate)
			if err != nil || !ok {
				return err
			}
			fmt.Fprintf(out, "Use %q as %s: set %s to %d in the configuration file\n",
				sel.Device.Name, sel.Role, sel.ConfigKey(), sel.Device.ID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&pick, "pick", "p", false,
		"Pick a device interactively")
	return cmd
}
