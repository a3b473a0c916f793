// Package gate builds the interrupt descriptor table and routes hardware
// interrupts to Go handlers.
package gate

import (
	"mikango/kernel"
	"mikango/kernel/cpu"
	"unsafe"
)

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint8

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DoubleFault occurs when an unhandled exception occurs or when an
	// exception occurs within a running exception handler.
	DoubleFault = InterruptNumber(8)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory table (PDT) or one
	// of its entries is not present or when a privilege and/or RW
	// protection check fails.
	PageFaultException = InterruptNumber(14)

	// XHCI is the vector that the xHCI host controller MSI is routed to.
	XHCI = InterruptNumber(0x40)
)

// Entry trampolines exist for vectors [firstGateEntry, firstGateEntry+gateEntryCount).
const (
	firstGateEntry = 0x20
	gateEntryCount = 0x30
)

var (
	// ErrVectorClaimed is returned when registering a handler for a vector
	// whose gate is already present.
	ErrVectorClaimed = &kernel.Error{Module: "gate", Message: "interrupt vector already has a handler"}

	// ErrNoGateEntry is returned for vectors without an entry trampoline.
	ErrNoGateEntry = &kernel.Error{Module: "gate", Message: "no entry trampoline for interrupt vector"}

	// handlers is indexed by vector-firstGateEntry. It is only written with
	// interrupts disabled, before the gate that reads it becomes present.
	handlers [gateEntryCount]func()

	gateEntryAddrFn = gateEntryAddr
	codeSegmentFn   = cpu.CodeSegment
	loadIDTFn       = cpu.LoadIDT
)

// GateType is the 4-bit system descriptor type of a gate.
type GateType uint8

// Supported gate and system descriptor types.
const (
	UpperBytes    GateType = 0
	LDT           GateType = 2
	TSSAvailable  GateType = 9
	TSSBusy       GateType = 11
	CallGate      GateType = 12
	InterruptGate GateType = 14
	TrapGate      GateType = 15
)

// Attribute is the packed type/attribute word of an IDT gate.
//
//	bit  15     present
//	bits 13-14  descriptor privilege level
//	bits 8-11   gate type
//	bits 0-2    interrupt stack table index
type Attribute uint16

const (
	attrPresentBit = 15
	attrDPLShift   = 13
	attrDPLMask    = 0x3
	attrTypeShift  = 8
	attrTypeMask   = 0xf
	attrISTMask    = 0x7
)

// MakeAttribute packs the supplied fields into an Attribute. Values wider
// than their bit range are truncated.
func MakeAttribute(typ GateType, dpl uint8, present bool, ist uint8) Attribute {
	attr := Attribute(uint16(dpl&attrDPLMask)<<attrDPLShift |
		uint16(uint8(typ)&attrTypeMask)<<attrTypeShift |
		uint16(ist&attrISTMask))

	if present {
		attr |= 1 << attrPresentBit
	}

	return attr
}

// Present returns the value of the present flag.
func (a Attribute) Present() bool { return a&(1<<attrPresentBit) != 0 }

// DPL returns the descriptor privilege level.
func (a Attribute) DPL() uint8 { return uint8(a>>attrDPLShift) & attrDPLMask }

// Type returns the gate type.
func (a Attribute) Type() GateType { return GateType(uint8(a>>attrTypeShift) & attrTypeMask) }

// IST returns the interrupt stack table index (0 = IST not used).
func (a Attribute) IST() uint8 { return uint8(a) & attrISTMask }

// Descriptor is a 16-byte long mode IDT gate.
type Descriptor struct {
	offsetLow    uint16
	selector     uint16
	attr         Attribute
	offsetMiddle uint16
	offsetHigh   uint32
	_            uint32
}

// SetEntry points d at the handler located at offset, to be executed with
// the supplied code segment selector.
func SetEntry(d *Descriptor, attr Attribute, offset uint64, selector uint16) {
	d.attr = attr
	d.offsetLow = uint16(offset)
	d.offsetMiddle = uint16(offset >> 16)
	d.offsetHigh = uint32(offset >> 32)
	d.selector = selector
}

// Offset returns the handler address stored in d.
func (d *Descriptor) Offset() uint64 {
	return uint64(d.offsetLow) | uint64(d.offsetMiddle)<<16 | uint64(d.offsetHigh)<<32
}

// Selector returns the code segment selector stored in d.
func (d *Descriptor) Selector() uint16 { return d.selector }

// Attribute returns the attribute word stored in d.
func (d *Descriptor) Attribute() Attribute { return d.attr }

// Table is the interrupt descriptor table. Entries that were never set stay
// zeroed which the CPU treats as not present.
type Table [256]Descriptor

// Pointer returns the LIDT operand for t.
func (t *Table) Pointer() cpu.DescriptorTablePointer {
	return cpu.DescriptorTablePointer{
		Limit: uint16(unsafe.Sizeof(*t) - 1),
		Base:  uint64(uintptr(unsafe.Pointer(t))),
	}
}

// Load makes t the active IDT. t must not move or be freed afterwards.
func (t *Table) Load() {
	ptr := t.Pointer()
	loadIDTFn(&ptr)
}

// HandleInterrupt ensures that handler is invoked when vec is raised. The
// gate is installed as a present, privilege 0 interrupt gate so the CPU
// clears IF before handler runs. A non-zero ist selects an interrupt stack
// table slot.
//
// handler runs in interrupt context: it must not block, allocate or enable
// interrupts.
func (t *Table) HandleInterrupt(vec InterruptNumber, ist uint8, handler func()) *kernel.Error {
	if vec < firstGateEntry || int(vec) >= firstGateEntry+gateEntryCount {
		return ErrNoGateEntry
	}

	if t[vec].attr.Present() {
		return ErrVectorClaimed
	}

	handlers[vec-firstGateEntry] = handler
	SetEntry(
		&t[vec],
		MakeAttribute(InterruptGate, 0, true, ist),
		uint64(gateEntryAddrFn(int(vec-firstGateEntry))),
		codeSegmentFn(),
	)

	return nil
}

// dispatch is called by the entry trampolines with the number of the raised
// vector.
//
//go:nosplit
func dispatch(vector uint64) {
	if h := handlers[vector-firstGateEntry]; h != nil {
		h()
	}
}

// gateEntryAddr returns the address of the ABI0 entry trampoline for vector
// firstGateEntry+index. Go references to assembly functions resolve to an
// ABIInternal wrapper so the address has to be read from assembly.
func gateEntryAddr(index int) uintptr
