package upgrade

import (
	"fmt"
	"unsafe"
)

// Tag identifies the Event variant carried by an Envelope. The numeric
// values are part of the C ABI and must not be reordered.
type Tag uint32

const (
	TagAttemptingRepair Tag = iota
	TagAttemptingUpgrade
	TagDpkgInfo
	TagDpkgErr
	TagUpgradeInfo
	TagUpgradeErr
	TagPackageProcessing
	TagPackageProgress
	TagPackageSettingUp
	TagPackageUnpacking
	TagResumingUpgrade
)

var tagNames = [...]string{
	TagAttemptingRepair:  "ATTEMPTING_REPAIR",
	TagAttemptingUpgrade: "ATTEMPTING_UPGRADE",
	TagDpkgInfo:          "DPKG_INFO",
	TagDpkgErr:           "DPKG_ERR",
	TagUpgradeInfo:       "UPGRADE_INFO",
	TagUpgradeErr:        "UPGRADE_ERR",
	TagPackageProcessing: "PACKAGE_PROCESSING",
	TagPackageProgress:   "PACKAGE_PROGRESS",
	TagPackageSettingUp:  "PACKAGE_SETTING_UP",
	TagPackageUnpacking:  "PACKAGE_UNPACKING",
	TagResumingUpgrade:   "RESUMING_UPGRADE",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint32(t))
}

// Slot is a borrowed (pointer, length) view of string bytes. The zero Slot
// is the absent sentinel.
type Slot struct {
	Data *byte
	Len  int
}

func slotOf(s string) Slot {
	return Slot{Data: unsafe.StringData(s), Len: len(s)}
}

// Present reports whether the slot points at data. An empty payload may
// have no backing storage and then reads as absent; switch on the Tag to
// tell the two apart.
func (s Slot) Present() bool { return s.Data != nil }

// String copies the slot's bytes into a Go string. Absent slots read as "".
func (s Slot) String() string {
	if s.Data == nil || s.Len == 0 {
		return ""
	}
	return unsafe.String(s.Data, s.Len)
}

// Envelope is the fixed-layout projection of an Event handed across the
// library boundary. Percent is only meaningful for TagPackageProgress.
//
// The slots alias the source event's strings. An Envelope must not be kept
// after the callback that received it returns.
type Envelope struct {
	Tag     Tag
	Percent uint8
	Str1    Slot
	Str2    Slot
	Str3    Slot
}

// Strings returns copies of the three slots in order.
func (e Envelope) Strings() [3]string {
	return [3]string{e.Str1.String(), e.Str2.String(), e.Str3.String()}
}

// ToEnvelope converts an event. It never fails; every slot the variant does
// not define is left at its zero value.
func ToEnvelope(event Event) Envelope {
	var env Envelope

	switch ev := event.(type) {
	case AttemptingRepair:
		env.Tag = TagAttemptingRepair
	case AttemptingUpgrade:
		env.Tag = TagAttemptingUpgrade
	case DpkgInfo:
		env.Tag = TagDpkgInfo
		env.Str1 = slotOf(ev.Message)
	case DpkgErr:
		env.Tag = TagDpkgErr
		env.Str1 = slotOf(ev.Message)
	case UpgradeInfo:
		env.Tag = TagUpgradeInfo
		env.Str1 = slotOf(ev.Message)
	case UpgradeErr:
		env.Tag = TagUpgradeErr
		env.Str1 = slotOf(ev.Message)
	case PackageProcessing:
		env.Tag = TagPackageProcessing
		env.Str1 = slotOf(ev.Package)
	case PackageProgress:
		env.Tag = TagPackageProgress
		env.Percent = ev.Percent
	case PackageSettingUp:
		env.Tag = TagPackageSettingUp
		env.Str1 = slotOf(ev.Package)
	case PackageUnpacking:
		env.Tag = TagPackageUnpacking
		env.Str1 = slotOf(ev.Package)
		env.Str2 = slotOf(ev.Version)
		env.Str3 = slotOf(ev.Over)
	case ResumingUpgrade:
		env.Tag = TagResumingUpgrade
	}

	return env
}
