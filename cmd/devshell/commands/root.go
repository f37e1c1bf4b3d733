// Package commands implements the CLI commands for devshell.
package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.trai.ch/devshell/internal/app"
	"go.trai.ch/devshell/internal/build"
	"go.trai.ch/devshell/internal/core/domain"
	"go.trai.ch/zerr"
)

// EnvPrefix prefixes environment variables that override settings, e.g. DEVSHELL_OFFLINE.
const EnvPrefix = "DEVSHELL"

// Setting keys shared by flags, environment variables and the config file.
const (
	keyConfig    = "config"
	keyLogFormat = "log-format"
	keyTrace     = "trace"
	keyVerbose   = "verbose"
	keyPlatform  = "platform"
	keyOffline   = "offline"
)

// CLI represents the command line interface for devshell.
type CLI struct {
	app      Application
	rootCmd  *cobra.Command
	settings *viper.Viper
}

// Application represents the application logic interface.
type Application interface {
	Configure(s app.Settings) error
	Resolve(ctx context.Context, opts app.ResolveOptions) error
	Shell(ctx context.Context, opts app.ShellOptions) error
	Show(ctx context.Context, opts app.ShowOptions) error
	Watch(ctx context.Context, opts app.WatchOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           "devshell",
		Short:         "Compose reproducible development environments",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	flags := rootCmd.PersistentFlags()
	flags.String(keyConfig, "", "Settings file (YAML, TOML or JSON)")
	flags.String(keyLogFormat, app.LogFormatPretty, "Log format: pretty or json")
	flags.Bool(keyTrace, false, "Export trace spans to stderr")
	flags.Bool(keyVerbose, false, "Enable debug logging")
	flags.StringSliceP(keyPlatform, "p", nil, "Target platform (repeatable), e.g. x86_64-linux")
	flags.Bool(keyOffline, false, "Use stored environments instead of loading registries")

	settings := viper.New()
	settings.SetEnvPrefix(EnvPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	for _, key := range []string{keyLogFormat, keyTrace, keyVerbose, keyPlatform, keyOffline} {
		_ = settings.BindPFlag(key, flags.Lookup(key))
	}

	c := &CLI{
		app:      a,
		rootCmd:  rootCmd,
		settings: settings,
	}

	rootCmd.PersistentPreRunE = c.configure

	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newShellCmd())
	rootCmd.AddCommand(c.newShowCmd())
	rootCmd.AddCommand(c.newWatchCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// configure reads the optional settings file and applies tool-wide settings.
func (c *CLI) configure(cmd *cobra.Command, _ []string) error {
	if path, _ := cmd.Flags().GetString(keyConfig); path != "" {
		c.settings.SetConfigFile(path)
		if err := c.settings.ReadInConfig(); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to read settings file"), "path", path)
		}
	}

	return c.app.Configure(app.Settings{
		LogFormat:   c.settings.GetString(keyLogFormat),
		Verbose:     c.settings.GetBool(keyVerbose),
		Trace:       c.settings.GetBool(keyTrace),
		TraceOutput: cmd.ErrOrStderr(),
	})
}

func (c *CLI) platforms() ([]domain.Platform, error) {
	var platforms []domain.Platform
	// Values from DEVSHELL_PLATFORM arrive as one comma separated entry.
	for _, entry := range c.settings.GetStringSlice(keyPlatform) {
		for name := range strings.SplitSeq(entry, ",") {
			p := domain.Platform(strings.TrimSpace(name))
			if p == "" {
				continue
			}
			if err := p.Validate(); err != nil {
				return nil, err
			}
			platforms = append(platforms, p)
		}
	}
	return platforms, nil
}

// platform returns the single requested platform, or "" for the current one.
func (c *CLI) platform() (domain.Platform, error) {
	platforms, err := c.platforms()
	if err != nil {
		return "", err
	}
	switch len(platforms) {
	case 0:
		return "", nil
	case 1:
		return platforms[0], nil
	default:
		return "", zerr.With(domain.ErrMultiplePlatforms, "count", len(platforms))
	}
}

func (c *CLI) offline() bool {
	return c.settings.GetBool(keyOffline)
}
