package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/devshell/internal/app"
)

func (c *CLI) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show a summary of the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform, err := c.platform()
			if err != nil {
				return err
			}
			return c.app.Show(cmd.Context(), app.ShowOptions{
				Platform: platform,
				Offline:  c.offline(),
			})
		},
	}
}
