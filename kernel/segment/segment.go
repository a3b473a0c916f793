// Package segment sets up the global descriptor table used in long mode. The
// kernel uses a flat memory model: one code and one data segment spanning
// the whole address space at privilege level 0.
package segment

import (
	"math"
	"mikango/kernel/cpu"
	"unsafe"
)

// Selectors for the segments installed by Setup.
const (
	KernelCS = uint16(1 << 3)
	KernelSS = uint16(2 << 3)
)

// Segment descriptor types for code/data descriptors (S flag set).
const (
	TypeReadWrite   = 0x2
	TypeExecuteRead = 0xa
)

var (
	loadGDTFn        = cpu.LoadGDT
	reloadSegmentsFn = cpu.ReloadSegments
)

// Descriptor is an 8-byte segment descriptor.
type Descriptor uint64

func (d *Descriptor) setBits(shift, width uint, v uint64) {
	mask := uint64(1)<<width - 1
	*d = Descriptor(uint64(*d)&^(mask<<shift) | (v&mask)<<shift)
}

func (d Descriptor) bits(shift, width uint) uint64 {
	return uint64(d) >> shift & (uint64(1)<<width - 1)
}

func (d *Descriptor) setFlag(bit uint, v bool) {
	var b uint64
	if v {
		b = 1
	}
	d.setBits(bit, 1, b)
}

// SetLimit stores the 20-bit segment limit split across bits 0-15 and 48-51.
func (d *Descriptor) SetLimit(limit uint32) {
	d.setBits(0, 16, uint64(limit))
	d.setBits(48, 4, uint64(limit>>16))
}

// Limit returns the 20-bit segment limit.
func (d Descriptor) Limit() uint32 {
	return uint32(d.bits(0, 16) | d.bits(48, 4)<<16)
}

// SetBase stores the 32-bit segment base split across bits 16-39 and 56-63.
func (d *Descriptor) SetBase(base uint32) {
	d.setBits(16, 16, uint64(base))
	d.setBits(32, 8, uint64(base>>16))
	d.setBits(56, 8, uint64(base>>24))
}

// Base returns the 32-bit segment base.
func (d Descriptor) Base() uint32 {
	return uint32(d.bits(16, 16) | d.bits(32, 8)<<16 | d.bits(56, 8)<<24)
}

// SetType stores the 4-bit descriptor type.
func (d *Descriptor) SetType(typ uint8) { d.setBits(40, 4, uint64(typ)) }

// Type returns the 4-bit descriptor type.
func (d Descriptor) Type() uint8 { return uint8(d.bits(40, 4)) }

// SetSystemSegment sets the S flag. Despite its name in the manuals, a set
// S flag marks a code or data segment rather than a system segment.
func (d *Descriptor) SetSystemSegment(v bool) { d.setFlag(44, v) }

// SystemSegment returns the S flag.
func (d Descriptor) SystemSegment() bool { return d.bits(44, 1) == 1 }

// SetDPL stores the descriptor privilege level.
func (d *Descriptor) SetDPL(dpl uint8) { d.setBits(45, 2, uint64(dpl)) }

// DPL returns the descriptor privilege level.
func (d Descriptor) DPL() uint8 { return uint8(d.bits(45, 2)) }

// SetPresent sets the present flag.
func (d *Descriptor) SetPresent(v bool) { d.setFlag(47, v) }

// Present returns the present flag.
func (d Descriptor) Present() bool { return d.bits(47, 1) == 1 }

// SetAvailable sets the AVL flag which is free for OS use.
func (d *Descriptor) SetAvailable(v bool) { d.setFlag(52, v) }

// Available returns the AVL flag.
func (d Descriptor) Available() bool { return d.bits(52, 1) == 1 }

// SetLongMode sets the L flag of a code segment.
func (d *Descriptor) SetLongMode(v bool) { d.setFlag(53, v) }

// LongMode returns the L flag.
func (d Descriptor) LongMode() bool { return d.bits(53, 1) == 1 }

// SetDefaultOperationSize32 sets the D/B flag.
func (d *Descriptor) SetDefaultOperationSize32(v bool) { d.setFlag(54, v) }

// DefaultOperationSize32 returns the D/B flag.
func (d Descriptor) DefaultOperationSize32() bool { return d.bits(54, 1) == 1 }

// SetGranularity4K sets the G flag; the limit is then counted in 4 KiB units.
func (d *Descriptor) SetGranularity4K(v bool) { d.setFlag(55, v) }

// Granularity4K returns the G flag.
func (d Descriptor) Granularity4K() bool { return d.bits(55, 1) == 1 }

// setFlatSegment configures d as a present, ring 0, 4 GiB flat segment of
// the given type.
func (d *Descriptor) setFlatSegment(typ uint8) {
	*d = 0
	d.SetLimit(0xfffff)
	d.SetBase(0)
	d.SetType(typ)
	d.SetSystemSegment(true)
	d.SetDPL(0)
	d.SetPresent(true)
	d.SetGranularity4K(true)
}

// SetCodeSegment turns d into the 64-bit kernel code segment.
func (d *Descriptor) SetCodeSegment() {
	d.setFlatSegment(TypeExecuteRead)
	d.SetLongMode(true)
	d.SetDefaultOperationSize32(false)
}

// SetDataSegment turns d into the kernel data segment.
func (d *Descriptor) SetDataSegment() {
	d.setFlatSegment(TypeReadWrite)
	d.SetLongMode(false)
	d.SetDefaultOperationSize32(true)
}

// Table holds the null, kernel code and kernel data descriptors.
type Table [3]Descriptor

// Compile-time check that the LGDT limit of a Table fits in 16 bits.
var _ = [math.MaxUint16]struct{}{}[math.MaxUint16-unsafe.Sizeof(Table{})]

// Build fills in t.
func (t *Table) Build() {
	t[0] = 0
	t[KernelCS>>3].SetCodeSegment()
	t[KernelSS>>3].SetDataSegment()
}

// Pointer returns the LGDT operand for t.
func (t *Table) Pointer() cpu.DescriptorTablePointer {
	return cpu.DescriptorTablePointer{
		Limit: uint16(unsafe.Sizeof(*t) - 1),
		Base:  uint64(uintptr(unsafe.Pointer(t))),
	}
}

// Setup builds t, makes it the active GDT and reloads the segment registers
// so they refer to it. t must stay at the same address for as long as it is
// active.
func Setup(t *Table) {
	t.Build()

	ptr := t.Pointer()
	loadGDTFn(&ptr)
	reloadSegmentsFn(KernelCS, KernelSS)
}
