// Package kmod enumerates currently loaded kernel modules from /proc/modules.
package kmod

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ProcModulesPath is the kernel's list of loaded modules.
const ProcModulesPath = "/proc/modules"

// Module is one line of /proc/modules.
type Module struct {
	Name     string
	Size     uint64
	RefCount int
	UsedBy   []string
	State    string
}

// Lister returns the set of currently loaded modules. An error means the
// module state is unknown.
type Lister interface {
	Loaded() ([]Module, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func() ([]Module, error)

func (f ListerFunc) Loaded() ([]Module, error) { return f() }

// ProcLister reads modules from a procfs-formatted file.
type ProcLister struct {
	fs   afero.Fs
	path string
}

var _ Lister = (*ProcLister)(nil)

// NewProcLister returns a Lister over /proc/modules on fs. A nil fs means the
// host filesystem.
func NewProcLister(fs afero.Fs) *ProcLister {
	return NewProcListerAt(fs, ProcModulesPath)
}

// NewProcListerAt is NewProcLister for a modules file at another path.
func NewProcListerAt(fs afero.Fs, path string) *ProcLister {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &ProcLister{fs: fs, path: path}
}

func (l *ProcLister) Loaded() ([]Module, error) {
	data, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	return Parse(data)
}

// Parse decodes /proc/modules content. Lines with fewer than the three
// mandatory columns are rejected.
func Parse(data []byte) ([]Module, error) {
	var modules []Module

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 fields, got %d", lineNo, len(fields))
		}

		size, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: size: %w", lineNo, err)
		}
		refs, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("line %d: refcount: %w", lineNo, err)
		}

		m := Module{Name: fields[0], Size: size, RefCount: refs}
		if len(fields) > 3 && fields[3] != "-" {
			for _, dep := range strings.Split(strings.TrimSuffix(fields[3], ","), ",") {
				if dep != "" {
					m.UsedBy = append(m.UsedBy, dep)
				}
			}
		}
		if len(fields) > 4 {
			m.State = fields[4]
		}
		modules = append(modules, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return modules, nil
}

// AnyLoaded reports whether any of names appears in modules.
func AnyLoaded(modules []Module, names ...string) bool {
	for _, m := range modules {
		for _, name := range names {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}
