//go:build cgo

package main

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/installer/internal/upgrade"
)

// scriptedEngine replays a fixed resume: one event, a repair request, one
// more event.
type scriptedEngine struct {
	upgrades int
}

func (e *scriptedEngine) Upgrade(_ *upgrade.RecoveryOption, emit func(upgrade.Event)) error {
	e.upgrades++
	emit(upgrade.AttemptingUpgrade{})
	emit(upgrade.PackageProgress{Percent: 100})
	return nil
}

func (e *scriptedEngine) Resume(emit func(upgrade.Event), repair func(string)) error {
	emit(upgrade.ResumingUpgrade{})
	repair("/")
	emit(upgrade.AttemptingRepair{})
	return nil
}

func TestToCCarriesAllUnpackingSlots(t *testing.T) {
	ev := upgrade.PackageUnpacking{Package: "libc6", Version: "2.39-0ubuntu8", Over: "2.39-0ubuntu2"}

	got := readWire(toC(upgrade.ToEnvelope(ev)))

	assert.Equal(t, uint32(upgrade.TagPackageUnpacking), got.Tag)
	assert.Equal(t, [3]wireSlot{
		{Len: 5, Text: "libc6"},
		{Len: 13, Text: "2.39-0ubuntu8"},
		{Len: 13, Text: "2.39-0ubuntu2"},
	}, got.Slots)
}

func TestToCLeavesAbsentSlotsNull(t *testing.T) {
	absent := wireSlot{Null: true}

	tests := []struct {
		name  string
		event upgrade.Event
		want  wireEvent
	}{
		{
			name:  "attempting repair",
			event: upgrade.AttemptingRepair{},
			want:  wireEvent{Tag: uint32(upgrade.TagAttemptingRepair), Slots: [3]wireSlot{absent, absent, absent}},
		},
		{
			name:  "resuming upgrade",
			event: upgrade.ResumingUpgrade{},
			want:  wireEvent{Tag: uint32(upgrade.TagResumingUpgrade), Slots: [3]wireSlot{absent, absent, absent}},
		},
		{
			name:  "progress",
			event: upgrade.PackageProgress{Percent: 42},
			want:  wireEvent{Tag: uint32(upgrade.TagPackageProgress), Percent: 42, Slots: [3]wireSlot{absent, absent, absent}},
		},
		{
			name:  "dpkg info",
			event: upgrade.DpkgInfo{Message: "Setting up foo"},
			want: wireEvent{Tag: uint32(upgrade.TagDpkgInfo), Slots: [3]wireSlot{
				{Len: 14, Text: "Setting up foo"}, absent, absent,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, readWire(toC(upgrade.ToEnvelope(tt.event))))
		})
	}
}

func TestResumeUpgradeNullHandlePanicsBeforeCallbacks(t *testing.T) {
	var events, repairs uint32
	cb, repair := countingCallbacks()

	assert.PanicsWithValue(t, "resume upgrade: engine must not be nil", func() {
		installer_resume_upgrade(0, cb, unsafe.Pointer(&events), repair, unsafe.Pointer(&repairs))
	})
	assert.Zero(t, events)
	assert.Zero(t, repairs)
}

func TestUpgradeNullHandlePanics(t *testing.T) {
	var events uint32
	cb, _ := countingCallbacks()

	assert.PanicsWithValue(t, "upgrade: engine must not be nil", func() {
		installer_upgrade(0, nil, cb, unsafe.Pointer(&events))
	})
	assert.Zero(t, events)
}

func TestNullCallbacksAreNoOps(t *testing.T) {
	assert.Nil(t, eventSink(nil, nil))
	assert.Nil(t, repairChooser(nil, nil))

	engine := &scriptedEngine{}
	handle := newHandle(engine)
	defer installer_upgrade_engine_free(handle)

	assert.EqualValues(t, 0, installer_resume_upgrade(handle, nil, nil, nil, nil))
	assert.EqualValues(t, 0, installer_upgrade(handle, nil, nil, nil))
	assert.Equal(t, 1, engine.upgrades)
}

func TestCallbacksReachC(t *testing.T) {
	handle := newHandle(&scriptedEngine{})
	defer installer_upgrade_engine_free(handle)

	var events, repairs uint32
	cb, repair := countingCallbacks()

	require.EqualValues(t, 0, installer_resume_upgrade(handle, cb, unsafe.Pointer(&events), repair, unsafe.Pointer(&repairs)))
	assert.Equal(t, uint32(2), events)
	assert.Equal(t, uint32(1), repairs)

	require.EqualValues(t, 0, installer_upgrade(handle, nil, cb, unsafe.Pointer(&events)))
	assert.Equal(t, uint32(4), events)
}

func TestEngineHandles(t *testing.T) {
	assert.Nil(t, engineOf(0))
	assert.NotPanics(t, func() { installer_upgrade_engine_free(0) })

	engine := &scriptedEngine{}
	handle := newHandle(engine)
	defer installer_upgrade_engine_free(handle)
	assert.Same(t, engine, engineOf(handle))
}

func TestNullRecoveryOption(t *testing.T) {
	assert.Nil(t, recoveryOption(nil))
}
