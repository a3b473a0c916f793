// Package apic provides access to the registers of the local APIC of the
// current CPU. The register page is expected at its reset address and to be
// identity mapped.
package apic

import (
	"sync/atomic"
	"unsafe"
)

const (
	registerBase = uintptr(0xfee00000)

	regID  = registerBase + 0x020
	regEOI = registerBase + 0x0b0
)

var (
	// APIC registers must be accessed with single aligned 32-bit loads and
	// stores that the compiler may not elide or merge.
	mmioRead32Fn = func(addr uintptr) uint32 {
		return atomic.LoadUint32((*uint32)(unsafe.Pointer(addr)))
	}
	mmioWrite32Fn = func(addr uintptr, val uint32) {
		atomic.StoreUint32((*uint32)(unsafe.Pointer(addr)), val)
	}
)

// EndOfInterrupt signals the local APIC that the handler for the in-service
// interrupt has finished.
//
//go:nosplit
func EndOfInterrupt() {
	mmioWrite32Fn(regEOI, 0)
}

// BootstrapProcessorID returns the local APIC ID of the CPU running the
// caller. During bring-up this is the bootstrap processor.
func BootstrapProcessorID() uint8 {
	return uint8(mmioRead32Fn(regID) >> 24)
}
