// Package app builds cobra commands whose flags come from option structs.
// Flag values may also come from a config file or from the environment via
// viper; precedence is flag, env, config file, default.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"
	"k8s.io/component-base/cli/globalflag"
	"k8s.io/component-base/term"

	"github.com/autopeer-io/installer/pkg/log"
)

// EnvPrefix is prepended to every environment variable the commands read,
// e.g. INSTALLER_LOG_LEVEL for --log.level.
const EnvPrefix = "INSTALLER"

// RunFunc is the work a command does once its options are complete and valid.
type RunFunc func() error

// RunContextFunc is RunFunc for commands that want the command context.
type RunContextFunc func(ctx context.Context) error

// NamedFlagSetOptions is implemented by the options of every command.
type NamedFlagSetOptions interface {
	// Flags returns the flags grouped by section.
	Flags() cliflag.NamedFlagSets

	// Complete fills in fields derived from other fields.
	Complete() error

	// Validate reports every invalid field.
	Validate() error
}

// App is a command together with its options.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunContextFunc
	silence     bool
	noConfig    bool
	args        cobra.PositionalArgs
	aliases     []string
	children    []*App

	cmd *cobra.Command
}

// Option configures an App.
type Option func(*App)

// WithOptions sets the options the command reads its flags into.
func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the command body.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = func(context.Context) error { return run() }
	}
}

// WithRunContextFunc sets a command body that receives the command context.
func WithRunContextFunc(run RunContextFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithSilence suppresses cobra's usage and error printing.
func WithSilence() Option {
	return func(a *App) { a.silence = true }
}

// WithNoConfig drops the --config flag.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// WithValidArgs sets the positional argument validator.
func WithValidArgs(args cobra.PositionalArgs) Option {
	return func(a *App) { a.args = args }
}

// WithDefaultValidArgs rejects any positional argument.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithAliases sets alternative command names.
func WithAliases(aliases ...string) Option {
	return func(a *App) { a.aliases = aliases }
}

// WithSubApps adds child commands.
func WithSubApps(children ...*App) Option {
	return func(a *App) { a.children = append(a.children, children...) }
}

// NewApp creates an App and builds its cobra command.
func NewApp(name string, shortDesc string, opts ...Option) *App {
	a := &App{name: name, shortDesc: shortDesc}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the underlying cobra command.
func (a *App) Command() *cobra.Command { return a.cmd }

// Run executes the command with ctx and exits non-zero on error.
func (a *App) Run(ctx context.Context) {
	if err := a.cmd.ExecuteContext(ctx); err != nil {
		if a.silence {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		Aliases:       a.aliases,
		Args:          a.args,
		SilenceUsage:  true,
		SilenceErrors: a.silence,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.Flags().SortFlags = true

	for _, child := range a.children {
		cmd.AddCommand(child.Command())
	}

	var namedFlagSets cliflag.NamedFlagSets
	if a.options != nil {
		namedFlagSets = a.options.Flags()
	}
	globalflag.AddGlobalFlags(namedFlagSets.FlagSet("global"), cmd.Name())
	if !a.noConfig {
		addConfigFlag(a.name, namedFlagSets.FlagSet("global"))
	}
	for _, name := range namedFlagSets.Order {
		cmd.Flags().AddFlagSet(namedFlagSets.FlagSets[name])
	}

	if a.runFunc != nil {
		cmd.RunE = a.runCommand
	}

	cols, _, _ := term.TerminalSize(cmd.OutOrStdout())
	cliflag.SetUsageAndHelpFunc(cmd, namedFlagSets, cols)

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, args []string) error {
	if a.options != nil {
		v := viper.New()
		if err := loadConfig(v, cmd); err != nil {
			return err
		}
		if err := v.Unmarshal(a.options); err != nil {
			return fmt.Errorf("decode options: %w", err)
		}
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	defer func() { _ = log.Sync() }()
	return a.runFunc(cmd.Context())
}

// loadConfig merges the config file, the environment and the parsed flags
// into v. Only keys known as flags are read from the environment.
func loadConfig(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if path, _ := cmd.Flags().GetString(configFlagName); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	return nil
}
