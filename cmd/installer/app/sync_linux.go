//go:build linux

package app

import "golang.org/x/sys/unix"

// syncFilesystems flushes written quirk files before the installer reboots.
func syncFilesystems() {
	unix.Sync()
}
