package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/devshell/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stored environments and caches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}

			switch {
			case all:
				opts.Store = true
				opts.Cache = true
			case cache:
				opts.Cache = true
			default:
				// Default behavior: clean stored environments
				opts.Store = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("cache", "c", false, "Clean registry, NixHub and environment caches")
	cmd.Flags().BoolP("all", "a", false, "Clean stored environments and all caches")

	return cmd
}
