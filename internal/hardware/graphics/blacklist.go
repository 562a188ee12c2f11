package graphics

import (
	"github.com/spf13/afero"

	"github.com/autopeer-io/installer/internal/hardware/dmi"
	"github.com/autopeer-io/installer/internal/hardware/kmod"
	"github.com/autopeer-io/installer/internal/pkg/metrics"
)

// Blacklister disables the discrete NVIDIA GPU on an already running system
// when one of its drivers got loaded on a model that should not use it.
type Blacklister struct {
	settings
	fs afero.Fs
}

// NewBlacklister returns a Blacklister over the live root of fs. Unless
// overridden, the identity comes from product_name, loaded modules are read
// from /proc/modules and the model list is RuntimeTable.
func NewBlacklister(fs afero.Fs, opts ...Option) *Blacklister {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	b := &Blacklister{settings: newSettings(opts), fs: fs}
	if b.probe == nil {
		b.probe = dmi.NewProbe(fs, dmi.ProductNamePath)
	}
	if b.modules == nil {
		b.modules = kmod.NewProcLister(fs)
	}
	if b.table == nil {
		b.table = &RuntimeTable
	}
	return b
}

// Apply overwrites the live power options file with RuntimeBlacklist if the
// model is in RuntimeTable and nvidia or nouveau is loaded. When the loaded
// modules cannot be listed it does nothing. The only error returned is from
// writing the file.
func (b *Blacklister) Apply() error {
	modules, err := b.modules.Loaded()
	if err != nil {
		b.logger.Debug("kernel module state unknown, skipping blacklist", "error", err)
		return nil
	}

	id := b.probe.Identity()
	if !b.table.Switchable(id) || !kmod.AnyLoaded(modules, "nvidia", "nouveau") {
		metrics.QuirkApplicationsTotal.WithLabelValues("runtime", NotApplicable.String()).Inc()
		return nil
	}

	b.logger.Info("disabling external NVIDIA graphics by default", "identity", id.String())
	if err := RuntimeBlacklist.WriteUnder(b.fs, "/"); err != nil {
		return err
	}
	metrics.QuirkApplicationsTotal.WithLabelValues("runtime", PreferIntegrated.String()).Inc()
	return nil
}
