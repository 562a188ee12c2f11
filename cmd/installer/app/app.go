package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/autopeer-io/installer/cmd/installer/app/options"
	"github.com/autopeer-io/installer/internal/hardware/dmi"
	"github.com/autopeer-io/installer/internal/hardware/graphics"
	"github.com/autopeer-io/installer/internal/hardware/kmod"
	"github.com/autopeer-io/installer/internal/pkg/metrics"
	"github.com/autopeer-io/installer/internal/upgrade"
	"github.com/autopeer-io/installer/internal/upgrade/apt"
	"github.com/autopeer-io/installer/pkg/app"
	"github.com/autopeer-io/installer/pkg/log"
)

const (
	commandName = "installer"
	commandDesc = `The installer applies hardware quirks to a freshly installed system and
drives package upgrades from the recovery environment. It runs the same code
the distribution installer loads through libinstaller.`
)

// NewApp returns the installer command acting on the host filesystem.
func NewApp() *app.App {
	return newApp(os.Stdout, afero.NewOsFs())
}

func newApp(out io.Writer, fs afero.Fs) *app.App {
	return app.NewApp(
		commandName,
		"Apply hardware quirks and run system upgrades",
		app.WithDescription(commandDesc),
		app.WithNoConfig(),
		app.WithSubApps(
			newConfigureGraphicsApp(out, fs),
			newDisableExternalGraphicsApp(out, fs),
			newUpgradeApp(out),
			newResumeUpgradeApp(out),
			newQuirksApp(out),
		),
	)
}

func newConfigureGraphicsApp(out io.Writer, fs afero.Fs) *app.App {
	opts := options.NewGraphicsOptions(true)
	return app.NewApp(
		"configure-graphics",
		"Write the switchable graphics configuration into the target system",
		app.WithDescription(`Reads the DMI product version of this machine and, for models with
switchable graphics, writes the modprobe power options (and the prime
on-demand marker for hybrid models) under --root. Prints whether the model
has switchable graphics.`),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunContextFunc(func(ctx context.Context) error {
			log.Init(opts.Log)
			if err := ctx.Err(); err != nil {
				return err
			}

			configurator := graphics.NewConfigurator(fs,
				graphics.WithIdentitySource(dmi.NewProbe(fs, opts.Hardware.ProductVersionPath)),
				graphics.WithLogger(log.WithName("graphics")),
			)
			switchable, err := configurator.Configure(opts.Root)
			if err != nil {
				return finish(opts.Metrics.Textfile, fmt.Errorf("configure graphics: %w", err))
			}
			if switchable {
				syncFilesystems()
			}

			fmt.Fprintf(out, "switchable graphics: %t\n", switchable)
			return finish(opts.Metrics.Textfile, nil)
		}),
	)
}

func newDisableExternalGraphicsApp(out io.Writer, fs afero.Fs) *app.App {
	opts := options.NewGraphicsOptions(false)
	return app.NewApp(
		"disable-external-graphics",
		"Blacklist the NVIDIA drivers on the running system when required",
		app.WithDescription(`On models that must boot on integrated graphics, overwrites the live
modprobe power options with a blacklist of the NVIDIA drivers if nvidia or
nouveau is currently loaded.`),
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunContextFunc(func(ctx context.Context) error {
			log.Init(opts.Log)
			if err := ctx.Err(); err != nil {
				return err
			}

			blacklister := graphics.NewBlacklister(fs,
				graphics.WithIdentitySource(dmi.NewProbe(fs, opts.Hardware.ProductNamePath)),
				graphics.WithModules(kmod.NewProcListerAt(fs, opts.Hardware.ModulesPath)),
				graphics.WithLogger(log.WithName("graphics")),
			)
			if err := blacklister.Apply(); err != nil {
				return finish(opts.Metrics.Textfile, fmt.Errorf("disable external graphics: %w", err))
			}
			syncFilesystems()

			fmt.Fprintln(out, "external graphics check complete")
			return finish(opts.Metrics.Textfile, nil)
		}),
	)
}

func newUpgradeApp(out io.Writer) *app.App {
	opts := options.NewUpgradeOptions(false)
	return app.NewApp(
		"upgrade",
		"Upgrade the system at --root, repairing once on failure",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunContextFunc(func(ctx context.Context) error {
			log.Init(opts.Log)
			if err := ctx.Err(); err != nil {
				return err
			}

			engine := apt.New(opts.Root, apt.WithLogger(log.Std()))
			err := upgrade.NewInvoker(log.Std()).Upgrade(engine, opts.Recovery.RecoveryOption(), newEventPrinter(out))
			return finish(opts.Metrics.Textfile, err)
		}),
	)
}

func newResumeUpgradeApp(out io.Writer) *app.App {
	opts := options.NewUpgradeOptions(true)
	return app.NewApp(
		"resume-upgrade",
		"Resume an interrupted upgrade of the system at --root",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunContextFunc(func(ctx context.Context) error {
			log.Init(opts.Log)
			if err := ctx.Err(); err != nil {
				return err
			}

			engine := apt.New(opts.Root, apt.WithLogger(log.Std()))
			chooser := upgrade.RepairChooserFunc(func(target string) {
				fmt.Fprintf(out, "repairing %s\n", target)
			})
			err := upgrade.NewInvoker(log.Std()).ResumeUpgrade(engine, newEventPrinter(out), chooser)
			return finish(opts.Metrics.Textfile, err)
		}),
	)
}

func newQuirksApp(out io.Writer) *app.App {
	opts := options.NewQuirksOptions()
	return app.NewApp(
		"quirks",
		"List the models the graphics quirks apply to",
		app.WithOptions(opts),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(func() error {
			log.Init(opts.Log)
			return printQuirks(out, opts.Output)
		}),
	)
}

// finish writes the metrics textfile and returns err. A textfile failure is
// logged and only returned when the command itself succeeded.
func finish(textfile string, err error) error {
	if werr := metrics.WriteTextfile(textfile); werr != nil {
		log.Error(werr, "failed to write metrics textfile", "path", textfile)
		if err == nil {
			return werr
		}
	}
	return err
}
