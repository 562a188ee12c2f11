package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/installer/pkg/app"
	"github.com/autopeer-io/installer/pkg/log"
	"github.com/autopeer-io/installer/pkg/options"
)

// CommonOptions are carried by every subcommand.
type CommonOptions struct {
	Log     *log.Options            `json:"log" mapstructure:"log"`
	Metrics *options.MetricsOptions `json:"metrics" mapstructure:"metrics"`
}

func newCommonOptions() CommonOptions {
	return CommonOptions{
		Log:     log.NewOptions(),
		Metrics: options.NewMetricsOptions(),
	}
}

func (o *CommonOptions) addFlags(fss *cliflag.NamedFlagSets) {
	o.Metrics.AddFlags(fss.FlagSet("metrics"))
	o.Log.AddFlags(fss.FlagSet("log"))
}

func (o *CommonOptions) validate() []error {
	errs := []error{}
	errs = append(errs, o.Metrics.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errs
}

// GraphicsOptions configure `configure-graphics` and `disable-external-graphics`.
type GraphicsOptions struct {
	CommonOptions `mapstructure:",squash"`

	// Root is the mounted target system. Unused by disable-external-graphics,
	// which always acts on the live system.
	Root     string                   `json:"root" mapstructure:"root"`
	Hardware *options.HardwareOptions `json:"hardware" mapstructure:"hardware"`

	withRoot bool
}

var _ app.NamedFlagSetOptions = (*GraphicsOptions)(nil)

// NewGraphicsOptions returns options for a graphics command. withRoot adds
// the --root flag.
func NewGraphicsOptions(withRoot bool) *GraphicsOptions {
	return &GraphicsOptions{
		CommonOptions: newCommonOptions(),
		Root:          "/target",
		Hardware:      options.NewHardwareOptions(),
		withRoot:      withRoot,
	}
}

func (o *GraphicsOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	if o.withRoot {
		fss.FlagSet("target").StringVar(&o.Root, "root", o.Root, "Root of the system being installed.")
	}
	o.Hardware.AddFlags(fss.FlagSet("hardware"))
	o.addFlags(&fss)
	return fss
}

func (o *GraphicsOptions) Complete() error {
	return nil
}

func (o *GraphicsOptions) Validate() error {
	errs := o.validate()
	errs = append(errs, o.Hardware.Validate()...)
	if o.withRoot {
		if err := options.ValidateAbsPath("root", o.Root); err != nil {
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

// UpgradeOptions configure `upgrade` and `resume-upgrade`.
type UpgradeOptions struct {
	CommonOptions `mapstructure:",squash"`

	Root     string                   `json:"root" mapstructure:"root"`
	Recovery *options.RecoveryOptions `json:"recovery" mapstructure:"recovery"`

	resume bool
}

var _ app.NamedFlagSetOptions = (*UpgradeOptions)(nil)

// NewUpgradeOptions returns options for an upgrade command. Resumed upgrades
// take no recovery flags.
func NewUpgradeOptions(resume bool) *UpgradeOptions {
	return &UpgradeOptions{
		CommonOptions: newCommonOptions(),
		Root:          "/",
		Recovery:      options.NewRecoveryOptions(),
		resume:        resume,
	}
}

func (o *UpgradeOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fss.FlagSet("target").StringVar(&o.Root, "root", o.Root, "Root of the system to upgrade. Commands run in a chroot unless it is /.")
	if !o.resume {
		o.Recovery.AddFlags(fss.FlagSet("recovery"))
	}
	o.addFlags(&fss)
	return fss
}

func (o *UpgradeOptions) Complete() error {
	return nil
}

func (o *UpgradeOptions) Validate() error {
	errs := o.validate()
	if err := options.ValidateAbsPath("root", o.Root); err != nil {
		errs = append(errs, err)
	}
	if !o.resume {
		errs = append(errs, o.Recovery.Validate()...)
	}
	return utilerrors.NewAggregate(errs)
}

// QuirksOptions configure `quirks`.
type QuirksOptions struct {
	Log    *log.Options `json:"log" mapstructure:"log"`
	Output string       `json:"output" mapstructure:"output"`
}

var _ app.NamedFlagSetOptions = (*QuirksOptions)(nil)

func NewQuirksOptions() *QuirksOptions {
	return &QuirksOptions{
		Log:    log.NewOptions(),
		Output: "table",
	}
}

func (o *QuirksOptions) Flags() cliflag.NamedFlagSets {
	fss := cliflag.NamedFlagSets{}
	fss.FlagSet("output").StringVarP(&o.Output, "output", "o", o.Output, "Output format. One of: table|yaml.")
	o.Log.AddFlags(fss.FlagSet("log"))
	return fss
}

func (o *QuirksOptions) Complete() error {
	return nil
}

func (o *QuirksOptions) Validate() error {
	errs := []error{}
	if o.Output != "table" && o.Output != "yaml" {
		errs = append(errs, fmt.Errorf("--output must be table or yaml, got %q", o.Output))
	}
	errs = append(errs, o.Log.Validate()...)
	return utilerrors.NewAggregate(errs)
}
