package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/devshell/internal/app"
)

func (c *CLI) newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Enter an interactive shell with the environment activated",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform, err := c.platform()
			if err != nil {
				return err
			}
			noMaterialize, _ := cmd.Flags().GetBool("no-materialize")
			printScript, _ := cmd.Flags().GetBool("print")

			return c.app.Shell(cmd.Context(), app.ShellOptions{
				Platform:      platform,
				Offline:       c.offline(),
				NoMaterialize: noMaterialize,
				Print:         printScript,
			})
		},
	}
	cmd.Flags().Bool("no-materialize", false, "Skip Nix and only export devshell variables and the hook")
	cmd.Flags().Bool("print", false, "Print the activation script instead of starting a shell")
	return cmd
}
