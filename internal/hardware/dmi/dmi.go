// Package dmi reads machine identity strings from the firmware DMI tables
// exposed under /sys/class/dmi/id.
//
// Reads never fail: a missing or unreadable file yields the empty Identity,
// which callers treat as "unknown model". Hardware quirk resolution must not
// abort an installation because firmware metadata is absent (containers,
// VMs without SMBIOS, restricted sysfs).
package dmi

import (
	"strings"

	"github.com/spf13/afero"
)

const (
	// ProductVersionPath holds the model code on System76 firmware
	// (for example "gaze15"). Consulted at install time.
	ProductVersionPath = "/sys/class/dmi/id/product_version"

	// ProductNamePath is consulted by the runtime blacklist applier. On the
	// same machine it does not necessarily match ProductVersionPath.
	ProductNamePath = "/sys/class/dmi/id/product_name"
)

// Identity is a firmware-reported model string. The zero value means unknown.
type Identity string

// Unknown reports whether the identity could not be read.
func (id Identity) Unknown() bool { return id == "" }

func (id Identity) String() string { return string(id) }

// ReadIdentity returns the trimmed contents of path on fs, or the empty
// Identity on any error.
func ReadIdentity(fs afero.Fs, path string) Identity {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return ""
	}
	return Identity(strings.TrimSpace(string(data)))
}

// Probe binds a filesystem and a DMI path so resolvers can be handed a
// ready-made identity source.
type Probe struct {
	fs   afero.Fs
	path string
}

// NewProbe returns a Probe reading path from fs. A nil fs means the host
// filesystem.
func NewProbe(fs afero.Fs, path string) *Probe {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Probe{fs: fs, path: path}
}

// Path returns the DMI file this probe reads.
func (p *Probe) Path() string { return p.path }

// Identity reads the identity. Each call goes back to the filesystem.
func (p *Probe) Identity() Identity {
	return ReadIdentity(p.fs, p.path)
}
