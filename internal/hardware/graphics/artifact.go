package graphics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	// PowerOptionsPath is the modprobe configuration owned by the power
	// daemon, relative to an install or runtime root.
	PowerOptionsPath = "etc/modprobe.d/system76-power.conf"
	// PrimeDiscretePath is read by gpu-manager to pick the PRIME mode.
	PrimeDiscretePath = "etc/prime-discrete"
	// LivePowerOptionsPath is PowerOptionsPath on the running system.
	LivePowerOptionsPath = "/" + PowerOptionsPath
)

// Artifact is a configuration file with fixed content.
type Artifact struct {
	Path    string
	Content []byte
}

// WriteUnder writes the artifact to root/Path, creating or truncating it.
func (a Artifact) WriteUnder(fs afero.Fs, root string) error {
	path := filepath.Join(root, a.Path)
	if err := afero.WriteFile(fs, path, a.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

var (
	// HybridModprobe enables NVIDIA dynamic power management and keeps the
	// GPU's i2c controller from pinning it awake.
	HybridModprobe = Artifact{
		Path: PowerOptionsPath,
		Content: []byte(`# Automatically generated by autopeer-installer
options nvidia NVreg_DynamicPowerManagement=0x02
blacklist i2c_nvidia_gpu
alias i2c_nvidia_gpu off
`),
	}

	// IntegratedModprobe disables every discrete GPU driver.
	IntegratedModprobe = Artifact{
		Path: PowerOptionsPath,
		Content: []byte(`# Automatically generated by autopeer-installer
blacklist i2c_nvidia_gpu
blacklist nouveau
blacklist nvidia
blacklist nvidia-drm
blacklist nvidia-modeset
alias i2c_nvidia_gpu off
alias nouveau off
alias nvidia off
alias nvidia-drm off
alias nvidia-modeset off
`),
	}

	// OnDemandMarker selects PRIME render offload.
	OnDemandMarker = Artifact{
		Path:    PrimeDiscretePath,
		Content: []byte("on-demand"),
	}

	// RuntimeBlacklist is written to the live root by the blacklist applier.
	RuntimeBlacklist = Artifact{
		Path: PowerOptionsPath,
		Content: []byte(`# Automatically generated by autopeer-installer
blacklist nouveau
blacklist nvidia
blacklist nvidia-drm
blacklist nvidia-modeset
alias nouveau off
alias nvidia off
alias nvidia-drm off
alias nvidia-modeset off
`),
	}
)

func modprobeDir(root string) string {
	return filepath.Join(root, filepath.Dir(PowerOptionsPath))
}

const dirPerm os.FileMode = 0o755
