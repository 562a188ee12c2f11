package graphics

import (
	"github.com/autopeer-io/installer/internal/hardware/kmod"
	"github.com/autopeer-io/installer/pkg/log"
)

// settings are the dependencies shared by Configurator and Blacklister.
// Each constructor fills in its own defaults for whatever is left nil.
type settings struct {
	probe   IdentitySource
	table   *Table
	modules kmod.Lister
	logger  log.Logger
}

// Option customizes a Configurator or a Blacklister.
type Option func(*settings)

// WithIdentitySource overrides where the identity is read from.
func WithIdentitySource(src IdentitySource) Option {
	return func(s *settings) { s.probe = src }
}

// WithTable overrides the quirk table.
func WithTable(t Table) Option {
	return func(s *settings) { s.table = &t }
}

// WithModules overrides how loaded kernel modules are listed. Only the
// Blacklister consults it.
func WithModules(l kmod.Lister) Option {
	return func(s *settings) { s.modules = l }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = log.Std()
	}
	return s
}
