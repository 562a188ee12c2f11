package main

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/autopeer-io/installer/pkg/app"
	"github.com/autopeer-io/installer/pkg/log"
)

// graphicsStatus is the installer_configure_graphics return value:
// 1 switchable, 0 not, -1 on a write failure.
func graphicsStatus(switchable bool, err error) int {
	switch {
	case err != nil:
		return -1
	case switchable:
		return 1
	default:
		return 0
	}
}

// loadLogOptions reads INSTALLER_LOG_* from the host process environment.
// The library has no command line of its own.
func loadLogOptions() *log.Options {
	opts := log.NewOptions()
	opts.Name = "libinstaller"
	opts.EnableColor = false

	v := viper.New()
	v.SetEnvPrefix(app.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if level := v.GetString("log.level"); level != "" {
		opts.Level = level
	}
	if format := v.GetString("log.format"); format != "" {
		opts.Format = format
	}
	if paths := v.GetStringSlice("log.output-paths"); len(paths) > 0 {
		opts.OutputPaths = paths
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return log.NewOptions()
	}
	return opts
}
