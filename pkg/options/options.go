// Package options holds the option structs shared by installer commands.
package options

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option struct in this package.
type IOptions interface {
	// Validate reports all invalid fields.
	Validate() []error

	// AddFlags adds the option's flags to fs.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// flagName joins prefixes and name with dots.
func flagName(name string, prefixes ...string) string {
	out := ""
	for _, p := range prefixes {
		if p != "" {
			out += p + "."
		}
	}
	return out + name
}

// ValidateAbsPath returns an error naming flag when path is set but not absolute.
func ValidateAbsPath(flag, path string) error {
	if path != "" && !filepath.IsAbs(path) {
		return fmt.Errorf("--%s must be an absolute path, got %q", flag, path)
	}
	return nil
}
