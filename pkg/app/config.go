package app

import (
	"fmt"

	"github.com/spf13/pflag"
)

const configFlagName = "config"

func addConfigFlag(basename string, fs *pflag.FlagSet) {
	fs.StringP(configFlagName, "c", "", fmt.Sprintf("Read %s options from a YAML, JSON or TOML file. Flags and %s_* environment variables take precedence.", basename, EnvPrefix))
}
