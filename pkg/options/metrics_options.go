package options

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MetricsOptions)(nil)

// MetricsOptions controls the node_exporter textfile written after a command.
type MetricsOptions struct {
	// Textfile is the .prom file to write. Empty disables it.
	Textfile string `json:"textfile" mapstructure:"textfile"`
}

func NewMetricsOptions() *MetricsOptions {
	return &MetricsOptions{}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MetricsOptions) Validate() []error {
	if o == nil || o.Textfile == "" {
		return nil
	}

	errs := []error{}
	if err := ValidateAbsPath("metrics.textfile", o.Textfile); err != nil {
		errs = append(errs, err)
	}
	// node_exporter only collects *.prom files.
	if filepath.Ext(o.Textfile) != ".prom" {
		errs = append(errs, fmt.Errorf("--metrics.textfile must end in .prom, got %q", o.Textfile))
	}
	return errs
}

// AddFlags adds flags for MetricsOptions to the specified FlagSet.
func (o *MetricsOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Textfile, flagName("metrics.textfile", prefixes...), o.Textfile,
		"Write installer counters to this node_exporter textfile (.prom) when the command finishes.")
}
