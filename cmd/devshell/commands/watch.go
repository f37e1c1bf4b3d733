package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/devshell/internal/app"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-resolve the environment whenever its inputs change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platforms, err := c.platforms()
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")

			return c.app.Watch(cmd.Context(), app.WatchOptions{
				Platforms: platforms,
				Format:    format,
			})
		},
	}
	cmd.Flags().StringP("format", "f", app.FormatJSON, "Output format: json, shell or nix")
	return cmd
}
