package main

/*
#include <stdlib.h>
#include "installer.h"
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/autopeer-io/installer/internal/hardware/graphics"
	"github.com/autopeer-io/installer/internal/upgrade"
	"github.com/autopeer-io/installer/internal/upgrade/apt"
	"github.com/autopeer-io/installer/pkg/log"
)

func init() {
	log.Init(loadLogOptions())
}

//export installer_configure_graphics
func installer_configure_graphics(root *C.char) C.int {
	if root == nil {
		log.Error(nil, "configure graphics: root must not be null")
		return -1
	}

	switchable, err := graphics.NewConfigurator(nil, graphics.WithLogger(log.WithName("graphics"))).
		Configure(C.GoString(root))
	if err != nil {
		log.Error(err, "failed to configure graphics")
	}
	return C.int(graphicsStatus(switchable, err))
}

//export installer_disable_external_graphics
func installer_disable_external_graphics() C.int {
	if err := graphics.NewBlacklister(nil, graphics.WithLogger(log.WithName("graphics"))).Apply(); err != nil {
		log.Error(err, "failed to disable external graphics")
		return -1
	}
	return 0
}

//export installer_upgrade_engine_new
func installer_upgrade_engine_new(root *C.char) C.uintptr_t {
	return newHandle(apt.New(C.GoString(root), apt.WithLogger(log.Std())))
}

func newHandle(engine upgrade.Engine) C.uintptr_t {
	return C.uintptr_t(cgo.NewHandle(engine))
}

//export installer_upgrade_engine_free
func installer_upgrade_engine_free(handle C.uintptr_t) {
	if handle != 0 {
		cgo.Handle(handle).Delete()
	}
}

//export installer_upgrade
func installer_upgrade(handle C.uintptr_t, option *C.InstallerRecoveryOption, cb C.InstallerUpgradeEventCallback, userData unsafe.Pointer) C.int {
	defer func() { _ = log.Sync() }()
	err := upgrade.NewInvoker(log.Std()).Upgrade(engineOf(handle), recoveryOption(option), eventSink(cb, userData))
	return C.int(upgrade.Status(err))
}

//export installer_resume_upgrade
func installer_resume_upgrade(handle C.uintptr_t, cb C.InstallerUpgradeEventCallback, userData1 unsafe.Pointer, repair C.InstallerUpgradeRepairCallback, userData2 unsafe.Pointer) C.int {
	defer func() { _ = log.Sync() }()
	err := upgrade.NewInvoker(log.Std()).ResumeUpgrade(engineOf(handle), eventSink(cb, userData1), repairChooser(repair, userData2))
	return C.int(upgrade.Status(err))
}

// engineOf returns nil for the null handle so the invoker rejects it.
func engineOf(handle C.uintptr_t) upgrade.Engine {
	if handle == 0 {
		return nil
	}
	return cgo.Handle(handle).Value().(upgrade.Engine)
}

func eventSink(cb C.InstallerUpgradeEventCallback, userData unsafe.Pointer) upgrade.EventSink {
	if cb == nil {
		return nil
	}
	return upgrade.EventSinkFunc(func(env upgrade.Envelope) {
		C.installer_call_event_callback(cb, toC(env), userData)
	})
}

func repairChooser(cb C.InstallerUpgradeRepairCallback, userData unsafe.Pointer) upgrade.RepairChooser {
	if cb == nil {
		return nil
	}
	return upgrade.RepairChooserFunc(func(target string) {
		ctarget := C.CString(target)
		defer C.free(unsafe.Pointer(ctarget))
		C.installer_call_repair_callback(cb, (*C.uint8_t)(unsafe.Pointer(ctarget)), userData)
	})
}

// toC copies the envelope into its C layout. The string slots keep pointing
// at the event's bytes.
func toC(env upgrade.Envelope) C.InstallerUpgradeEvent {
	return C.InstallerUpgradeEvent{
		tag:          C.INSTALLER_UPGRADE_TAG(env.Tag),
		percent:      C.uint8_t(env.Percent),
		str1:         (*C.uint8_t)(unsafe.Pointer(env.Str1.Data)),
		str1_length1: C.size_t(env.Str1.Len),
		str2:         (*C.uint8_t)(unsafe.Pointer(env.Str2.Data)),
		str2_length1: C.size_t(env.Str2.Len),
		str3:         (*C.uint8_t)(unsafe.Pointer(env.Str3.Data)),
		str3_length1: C.size_t(env.Str3.Len),
	}
}

func recoveryOption(option *C.InstallerRecoveryOption) *upgrade.RecoveryOption {
	if option == nil {
		return nil
	}
	return &upgrade.RecoveryOption{
		Mode:           C.GoString(option.mode),
		RootUUID:       C.GoString(option.root_uuid),
		RecoveryUUID:   C.GoString(option.recovery_uuid),
		EFIUUID:        C.GoString(option.efi_uuid),
		LUKSUUID:       C.GoString(option.luks_uuid),
		Hostname:       C.GoString(option.hostname),
		Language:       C.GoString(option.language),
		KeyboardLayout: C.GoString(option.kbd_layout),
		OEMMode:        option.oem_mode != 0,
	}
}
