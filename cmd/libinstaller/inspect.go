package main

/*
#include "installer.h"

static void count_event(InstallerUpgradeEvent event, void *user_data)
{
	(*(uint32_t *)user_data)++;
}

static void count_repair(const uint8_t *target, void *user_data)
{
	(*(uint32_t *)user_data)++;
}

static InstallerUpgradeEventCallback counting_event_callback(void) { return count_event; }
static InstallerUpgradeRepairCallback counting_repair_callback(void) { return count_repair; }
*/
import "C"

import "unsafe"

// wireSlot is one string slot of an InstallerUpgradeEvent as C reads it.
type wireSlot struct {
	Null bool
	Len  int
	Text string
}

// wireEvent is an InstallerUpgradeEvent read back field by field.
type wireEvent struct {
	Tag     uint32
	Percent uint8
	Slots   [3]wireSlot
}

func readWire(ev C.InstallerUpgradeEvent) wireEvent {
	return wireEvent{
		Tag:     uint32(ev.tag),
		Percent: uint8(ev.percent),
		Slots: [3]wireSlot{
			readSlot(ev.str1, ev.str1_length1),
			readSlot(ev.str2, ev.str2_length1),
			readSlot(ev.str3, ev.str3_length1),
		},
	}
}

func readSlot(data *C.uint8_t, length C.size_t) wireSlot {
	if data == nil {
		return wireSlot{Null: true, Len: int(length)}
	}
	return wireSlot{Len: int(length), Text: C.GoStringN((*C.char)(unsafe.Pointer(data)), C.int(length))}
}

// countingCallbacks returns C callbacks that increment the uint32 passed as
// their user data.
func countingCallbacks() (C.InstallerUpgradeEventCallback, C.InstallerUpgradeRepairCallback) {
	return C.counting_event_callback(), C.counting_repair_callback()
}
