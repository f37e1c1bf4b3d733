package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/devshell/internal/app"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the environment and print its activation descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platforms, err := c.platforms()
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")

			return c.app.Resolve(cmd.Context(), app.ResolveOptions{
				Platforms: platforms,
				Format:    format,
				Offline:   c.offline(),
			})
		},
	}
	cmd.Flags().StringP("format", "f", app.FormatJSON, "Output format: json, shell or nix")
	return cmd
}
