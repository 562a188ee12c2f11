package options

import (
	"github.com/spf13/pflag"

	"github.com/autopeer-io/installer/internal/hardware/dmi"
	"github.com/autopeer-io/installer/internal/hardware/kmod"
)

var _ IOptions = (*HardwareOptions)(nil)

// HardwareOptions locates the firmware and kernel files the graphics quirks
// read. The defaults are the live kernel interfaces; tests and recovery
// environments point them elsewhere.
type HardwareOptions struct {
	ProductVersionPath string `json:"product-version" mapstructure:"product-version"`
	ProductNamePath    string `json:"product-name" mapstructure:"product-name"`
	ModulesPath        string `json:"modules" mapstructure:"modules"`
}

// NewHardwareOptions creates a HardwareOptions with the live kernel paths.
func NewHardwareOptions() *HardwareOptions {
	return &HardwareOptions{
		ProductVersionPath: dmi.ProductVersionPath,
		ProductNamePath:    dmi.ProductNamePath,
		ModulesPath:        kmod.ProcModulesPath,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *HardwareOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	for flag, path := range map[string]string{
		"hardware.product-version": o.ProductVersionPath,
		"hardware.product-name":    o.ProductNamePath,
		"hardware.modules":         o.ModulesPath,
	} {
		if err := ValidateAbsPath(flag, path); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// AddFlags adds flags for HardwareOptions to the specified FlagSet.
func (o *HardwareOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.ProductVersionPath, flagName("hardware.product-version", prefixes...), o.ProductVersionPath,
		"DMI product_version file used to pick the install-time graphics policy.")
	fs.StringVar(&o.ProductNamePath, flagName("hardware.product-name", prefixes...), o.ProductNamePath,
		"DMI product_name file used by the runtime NVIDIA blacklist.")
	fs.StringVar(&o.ModulesPath, flagName("hardware.modules", prefixes...), o.ModulesPath,
		"File listing loaded kernel modules in /proc/modules format.")
}
