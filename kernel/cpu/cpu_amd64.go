// Package cpu wraps the privileged x86_64 instructions used during bring-up:
// port I/O, interrupt flag control, descriptor table loads and CR3 access.
package cpu

var (
	cpuidFn = ID
)

// DescriptorTablePointer is the operand of the LGDT and LIDT instructions. The
// CPU expects a packed 10-byte structure (16-bit limit followed by a 64-bit
// base). The leading padding places Limit at offset 6 so that Limit and Base
// are contiguous while Base stays naturally aligned.
type DescriptorTablePointer struct {
	_     [3]uint16
	Limit uint16
	Base  uint64
}

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt arrives.
func Halt()

// EnableInterruptsAndHalt executes STI immediately followed by HLT. STI
// delays interrupt recognition by one instruction so an interrupt that is
// already pending wakes the HLT instead of being serviced before it.
func EnableInterruptsAndHalt()

// HaltForever disables interrupts and halts the CPU. It never returns.
func HaltForever()

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// LoadGDT loads the global descriptor table described by ptr.
func LoadGDT(ptr *DescriptorTablePointer)

// LoadIDT loads the interrupt descriptor table described by ptr.
func LoadIDT(ptr *DescriptorTablePointer)

// ReloadSegments loads the null selector into DS and ES, loads ss into SS and
// performs a far return to reload CS with cs. FS and GS are left alone as
// they carry the thread-local storage base.
func ReloadSegments(cs, ss uint16)

// CodeSegment returns the selector currently loaded in CS.
func CodeSegment() uint16

// ID returns information about the CPU and its features. It
// is implemented as a CPUID instruction with EAX=leaf and
// returns the values in EAX, EBX, ECX and EDX.
func ID(leaf uint32) (uint32, uint32, uint32, uint32)

// HasLocalAPIC returns true if CPUID reports an on-chip local APIC
// (leaf 1, EDX bit 9).
func HasLocalAPIC() bool {
	_, _, _, edx := cpuidFn(1)
	return edx&(1<<9) != 0
}

// PortWriteDword writes a uint32 value to the requested port.
func PortWriteDword(port uint16, val uint32)

// PortReadDword reads a uint32 value from the requested port.
func PortReadDword(port uint16) uint32
