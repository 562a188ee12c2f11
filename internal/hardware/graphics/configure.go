package graphics

import (
	"github.com/spf13/afero"

	"github.com/autopeer-io/installer/internal/hardware/dmi"
	"github.com/autopeer-io/installer/internal/pkg/metrics"
)

// IdentitySource yields the firmware identity of the booted machine.
type IdentitySource interface {
	Identity() dmi.Identity
}

// Configurator applies the install-time switchable graphics quirk to a
// target root.
type Configurator struct {
	settings
	fs afero.Fs
}

// NewConfigurator returns a Configurator writing through fs. Unless
// overridden, the identity comes from the live product_version on the same
// fs and InstallTable is used.
func NewConfigurator(fs afero.Fs, opts ...Option) *Configurator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	c := &Configurator{settings: newSettings(opts), fs: fs}
	if c.probe == nil {
		c.probe = dmi.NewProbe(fs, dmi.ProductVersionPath)
	}
	if c.table == nil {
		c.table = &InstallTable
	}
	return c
}

// Configure resolves the quirk for the booted machine and writes its
// artifacts under root. It reports whether the machine has switchable
// graphics. The identity is always taken from the live firmware, never from
// under root: at install time root is a freshly unpacked target that knows
// nothing about the hardware.
//
// Artifacts are written one after another; if a later write fails the
// earlier ones stay on disk.
func (c *Configurator) Configure(root string) (bool, error) {
	id := c.probe.Identity()
	policy := c.table.Lookup(id)
	metrics.QuirkApplicationsTotal.WithLabelValues("install", policy.String()).Inc()

	if policy == NotApplicable {
		c.logger.Debug("no switchable graphics quirk for this model", "identity", id.String())
		return false, nil
	}

	if err := c.fs.MkdirAll(modprobeDir(root), dirPerm); err != nil {
		// 目录创建失败不致命，后续写入会暴露真正的错误
		c.logger.Debug("could not create modprobe directory", "root", root, "error", err)
	}

	switch policy {
	case PreferIntegrated:
		c.logger.Info("disabling external NVIDIA graphics by default", "identity", id.String(), "root", root)
		if err := IntegratedModprobe.WriteUnder(c.fs, root); err != nil {
			return false, err
		}
	case Hybrid:
		c.logger.Info("setting module options for hybrid graphics mode", "identity", id.String(), "root", root)
		if err := HybridModprobe.WriteUnder(c.fs, root); err != nil {
			return false, err
		}

		c.logger.Info("configuring gpu-manager for hybrid graphics mode", "root", root)
		if err := OnDemandMarker.WriteUnder(c.fs, root); err != nil {
			return false, err
		}
	}

	return true, nil
}
