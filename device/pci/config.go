// Package pci enumerates the devices on the PCI bus and configures message
// signaled interrupts for them. Configuration space is reached through the
// legacy pair of I/O ports at 0xcf8 (address) and 0xcfc (data).
package pci

const (
	configAddressPort = uint16(0x0cf8)
	configDataPort    = uint16(0x0cfc)

	addressEnableBit = uint32(1) << 31
)

// Configuration space register offsets.
const (
	RegVendorDeviceID = uint8(0x00)
	RegClassCode      = uint8(0x08)
	RegHeaderType     = uint8(0x0c)
	RegBAR0           = uint8(0x10)
	RegBusNumbers     = uint8(0x18)
	RegCapabilityPtr  = uint8(0x34)
)

// PortIO provides 32-bit access to the I/O port space.
type PortIO interface {
	WriteDword(port uint16, val uint32)
	ReadDword(port uint16) uint32
}

// MakeAddress encodes the value written to the configuration address port
// to select a 32-bit register of a function. The two low bits of reg are
// ignored.
func MakeAddress(bus, device, function, reg uint8) uint32 {
	return addressEnableBit |
		uint32(bus)<<16 |
		uint32(device&0x1f)<<11 |
		uint32(function&0x7)<<8 |
		uint32(reg&0xfc)
}

func (b *Bus) readReg(bus, device, function, reg uint8) uint32 {
	b.io.WriteDword(configAddressPort, MakeAddress(bus, device, function, reg))
	return b.io.ReadDword(configDataPort)
}

func (b *Bus) writeReg(bus, device, function, reg uint8, val uint32) {
	b.io.WriteDword(configAddressPort, MakeAddress(bus, device, function, reg))
	b.io.WriteDword(configDataPort, val)
}

// ReadConfig reads the 32-bit configuration register reg of dev.
func (b *Bus) ReadConfig(dev Device, reg uint8) uint32 {
	return b.readReg(dev.Bus, dev.Device, dev.Function, reg)
}

// WriteConfig writes val to the 32-bit configuration register reg of dev.
func (b *Bus) WriteConfig(dev Device, reg uint8, val uint32) {
	b.writeReg(dev.Bus, dev.Device, dev.Function, reg, val)
}

// ReadVendorID returns the vendor ID of a function. Absent functions read
// as 0xffff.
func (b *Bus) ReadVendorID(bus, device, function uint8) uint16 {
	return uint16(b.readReg(bus, device, function, RegVendorDeviceID))
}

// ReadDeviceID returns the device ID of a function.
func (b *Bus) ReadDeviceID(bus, device, function uint8) uint16 {
	return uint16(b.readReg(bus, device, function, RegVendorDeviceID) >> 16)
}

// ReadHeaderType returns the header type byte of a function.
func (b *Bus) ReadHeaderType(bus, device, function uint8) uint8 {
	return uint8(b.readReg(bus, device, function, RegHeaderType) >> 16)
}

// ReadClassCode returns the class code triple of a function.
func (b *Bus) ReadClassCode(bus, device, function uint8) ClassCode {
	reg := b.readReg(bus, device, function, RegClassCode)
	return ClassCode{
		Base:      uint8(reg >> 24),
		Sub:       uint8(reg >> 16),
		Interface: uint8(reg >> 8),
	}
}

// ReadBusNumbers returns the bus number register of a PCI-to-PCI bridge.
// Bits 0-7 hold the primary, bits 8-15 the secondary and bits 16-23 the
// subordinate bus number.
func (b *Bus) ReadBusNumbers(bus, device, function uint8) uint32 {
	return b.readReg(bus, device, function, RegBusNumbers)
}
