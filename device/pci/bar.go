package pci

import "mikango/kernel"

const (
	barCount = 6

	barIOSpace     = uint32(1 << 0)
	barIOTypeMask  = uint32(0x3)
	barMemTypeMask = uint64(0xf)
	bar64BitMemory = uint32(1 << 2)
)

// ErrBARIndex is returned for a BAR index outside the header or for a 64-bit
// BAR whose upper half would lie outside it.
var ErrBARIndex = &kernel.Error{Module: "pci", Message: "BAR index out of range"}

// ReadBAR returns the base address held in BAR index of dev. For 64-bit
// memory BARs the following register supplies the upper 32 bits. The type
// bits are cleared: the low nibble for memory BARs and the low two bits for
// I/O BARs.
func (b *Bus) ReadBAR(dev Device, index int) (uint64, *kernel.Error) {
	if index < 0 || index >= barCount {
		return 0, ErrBARIndex
	}

	reg := RegBAR0 + uint8(4*index)
	bar := b.ReadConfig(dev, reg)
	if bar&barIOSpace != 0 {
		return uint64(bar &^ barIOTypeMask), nil
	}

	if bar&bar64BitMemory == 0 {
		return uint64(bar) &^ barMemTypeMask, nil
	}

	if index == barCount-1 {
		return 0, ErrBARIndex
	}

	upper := b.ReadConfig(dev, reg+4)
	return (uint64(upper)<<32 | uint64(bar)) &^ barMemTypeMask, nil
}
