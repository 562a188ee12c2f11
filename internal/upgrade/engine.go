package upgrade

// RecoveryOption describes the recovery partition an upgrade was staged
// from. The invoker hands it to the engine untouched.
type RecoveryOption struct {
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

// Engine performs upgrades on an installed system. Implementations call
// emit synchronously for every step and must not continue until it returns.
// An Engine is owned by one call at a time.
type Engine interface {
	// Upgrade runs a one-shot upgrade.
	Upgrade(option *RecoveryOption, emit func(Event)) error

	// Resume continues an interrupted upgrade. repair is called with the
	// candidate target whenever the engine needs the caller to pick what
	// to repair, and blocks the engine until it returns.
	Resume(emit func(Event), repair func(target string)) error
}

// EventSink receives envelopes. OnEvent runs on the upgrading goroutine and
// must not retain the envelope's slots.
type EventSink interface {
	OnEvent(env Envelope)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(env Envelope)

func (f EventSinkFunc) OnEvent(env Envelope) { f(env) }

// RepairChooser is asked to confirm the repair target of a resumed upgrade.
type RepairChooser interface {
	ChooseRepair(target string)
}

// RepairChooserFunc adapts a function to RepairChooser.
type RepairChooserFunc func(target string)

func (f RepairChooserFunc) ChooseRepair(target string) { f(target) }
