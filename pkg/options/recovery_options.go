package options

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/autopeer-io/installer/internal/upgrade"
)

var _ IOptions = (*RecoveryOptions)(nil)

// RecoveryOptions describes the recovery partition an upgrade is run from.
type RecoveryOptions struct {
	Mode           string `json:"mode" mapstructure:"mode"`
	RootUUID       string `json:"root-uuid" mapstructure:"root-uuid"`
	RecoveryUUID   string `json:"recovery-uuid" mapstructure:"recovery-uuid"`
	EFIUUID        string `json:"efi-uuid" mapstructure:"efi-uuid"`
	LUKSUUID       string `json:"luks-uuid" mapstructure:"luks-uuid"`
	Hostname       string `json:"hostname" mapstructure:"hostname"`
	Language       string `json:"language" mapstructure:"language"`
	KeyboardLayout string `json:"keyboard-layout" mapstructure:"keyboard-layout"`
	OEMMode        bool   `json:"oem-mode" mapstructure:"oem-mode"`
}

func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{Mode: "upgrade"}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *RecoveryOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}
	for _, f := range []struct{ flag, value string }{
		{"recovery.root-uuid", o.RootUUID},
		{"recovery.recovery-uuid", o.RecoveryUUID},
		{"recovery.efi-uuid", o.EFIUUID},
		{"recovery.luks-uuid", o.LUKSUUID},
	} {
		if f.value == "" {
			continue
		}
		if _, err := uuid.Parse(f.value); err != nil {
			errs = append(errs, fmt.Errorf("--%s: %w", f.flag, err))
		}
	}
	return errs
}

// AddFlags adds flags for RecoveryOptions to the specified FlagSet.
func (o *RecoveryOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Mode, flagName("recovery.mode", prefixes...), o.Mode, "Recovery mode recorded for the upgrade.")
	fs.StringVar(&o.RootUUID, flagName("recovery.root-uuid", prefixes...), o.RootUUID, "UUID of the root filesystem.")
	fs.StringVar(&o.RecoveryUUID, flagName("recovery.recovery-uuid", prefixes...), o.RecoveryUUID, "UUID of the recovery partition.")
	fs.StringVar(&o.EFIUUID, flagName("recovery.efi-uuid", prefixes...), o.EFIUUID, "UUID of the EFI system partition.")
	fs.StringVar(&o.LUKSUUID, flagName("recovery.luks-uuid", prefixes...), o.LUKSUUID, "UUID of the LUKS container, if encrypted.")
	fs.StringVar(&o.Hostname, flagName("recovery.hostname", prefixes...), o.Hostname, "Hostname of the installed system.")
	fs.StringVar(&o.Language, flagName("recovery.language", prefixes...), o.Language, "Locale of the installed system.")
	fs.StringVar(&o.KeyboardLayout, flagName("recovery.keyboard-layout", prefixes...), o.KeyboardLayout, "Keyboard layout of the installed system.")
	fs.BoolVar(&o.OEMMode, flagName("recovery.oem-mode", prefixes...), o.OEMMode, "Whether the system was installed in OEM mode.")
}

// RecoveryOption converts the options for the upgrade invoker.
func (o *RecoveryOptions) RecoveryOption() *upgrade.RecoveryOption {
	return &upgrade.RecoveryOption{
		Mode:           o.Mode,
		RootUUID:       o.RootUUID,
		RecoveryUUID:   o.RecoveryUUID,
		EFIUUID:        o.EFIUUID,
		LUKSUUID:       o.LUKSUUID,
		Hostname:       o.Hostname,
		Language:       o.Language,
		KeyboardLayout: o.KeyboardLayout,
		OEMMode:        o.OEMMode,
	}
}
