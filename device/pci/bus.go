package pci

import (
	"mikango/kernel"
	"mikango/kernel/kfmt"
)

const (
	// MaxDevices is the capacity of the device registry.
	MaxDevices = 32

	maxDevicesPerBus  = 32
	maxFunctions      = 8
	invalidVendorID   = uint16(0xffff)
	multiFunctionFlag = uint8(0x80)
	classBridge       = uint8(0x06)
	subclassPCIToPCI  = uint8(0x04)
)

var (
	// ErrRegistryFull is returned when a scan finds more than MaxDevices
	// functions.
	ErrRegistryFull = &kernel.Error{Module: "pci", Message: "device registry is full"}

	// ErrDeviceNotFound is returned when no scanned function matches a
	// lookup.
	ErrDeviceNotFound = &kernel.Error{Module: "pci", Message: "device not found"}
)

// ClassCode identifies the function of a device.
type ClassCode struct {
	Base      uint8
	Sub       uint8
	Interface uint8
}

// MatchBaseSub returns true if the base class and subclass are equal to the
// arguments.
func (c ClassCode) MatchBaseSub(base, sub uint8) bool {
	return c.Base == base && c.Sub == sub
}

// Device is the location and identity of a PCI function.
type Device struct {
	Bus        uint8
	Device     uint8
	Function   uint8
	HeaderType uint8
	Class      ClassCode
}

// IsMultiFunction returns true if the header type advertises functions
// besides function 0.
func (d Device) IsMultiFunction() bool {
	return isMultiFunction(d.HeaderType)
}

func isMultiFunction(headerType uint8) bool {
	return headerType&multiFunctionFlag != 0
}

// Bus is a PCI configuration space accessor together with the registry of
// functions found by the last scan.
type Bus struct {
	io PortIO

	devices     [MaxDevices]Device
	deviceCount int
}

// NewBus returns a Bus that issues configuration cycles through io.
func NewBus(io PortIO) Bus {
	return Bus{io: io}
}

// Devices returns the functions found by the last scan in discovery order.
func (b *Bus) Devices() []Device {
	return b.devices[:b.deviceCount]
}

// FindByClass returns the first scanned function whose class code equals
// class.
func (b *Bus) FindByClass(class ClassCode) (Device, *kernel.Error) {
	for _, dev := range b.Devices() {
		if dev.Class == class {
			return dev, nil
		}
	}

	return Device{}, ErrDeviceNotFound
}

// ScanAllBus clears the registry and scans every bus that is reachable from
// the host bridge. If the host bridge is a single function device only bus
// 0 is scanned. Otherwise each host bridge function f is responsible for
// bus f.
func (b *Bus) ScanAllBus() *kernel.Error {
	b.deviceCount = 0

	if !isMultiFunction(b.ReadHeaderType(0, 0, 0)) {
		return b.scanBus(0)
	}

	for function := uint8(0); function < maxFunctions; function++ {
		if b.ReadVendorID(0, 0, function) == invalidVendorID {
			continue
		}

		if err := b.scanBus(function); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bus) scanBus(bus uint8) *kernel.Error {
	for device := uint8(0); device < maxDevicesPerBus; device++ {
		if b.ReadVendorID(bus, device, 0) == invalidVendorID {
			continue
		}

		if err := b.scanDevice(bus, device); err != nil {
			return err
		}
	}

	return nil
}

func (b *Bus) scanDevice(bus, device uint8) *kernel.Error {
	dev, err := b.scanFunction(bus, device, 0)
	if err != nil {
		return err
	}

	if !dev.IsMultiFunction() {
		return nil
	}

	for function := uint8(1); function < maxFunctions; function++ {
		if b.ReadVendorID(bus, device, function) == invalidVendorID {
			continue
		}

		if _, err = b.scanFunction(bus, device, function); err != nil {
			return err
		}
	}

	return nil
}

// scanFunction registers a function and, for PCI-to-PCI bridges, scans the
// secondary bus behind it. Secondary bus numbers are assigned depth first so
// a bridge whose secondary bus is not above its own bus is unconfigured or
// part of a cycle and is not followed.
func (b *Bus) scanFunction(bus, device, function uint8) (Device, *kernel.Error) {
	dev := Device{
		Bus:        bus,
		Device:     device,
		Function:   function,
		HeaderType: b.ReadHeaderType(bus, device, function),
		Class:      b.ReadClassCode(bus, device, function),
	}

	if err := b.addDevice(dev); err != nil {
		return dev, err
	}

	if !dev.Class.MatchBaseSub(classBridge, subclassPCIToPCI) {
		return dev, nil
	}

	secondaryBus := uint8(b.ReadBusNumbers(bus, device, function) >> 8)
	if secondaryBus <= bus {
		kfmt.Printf("[pci] %d:%d.%d: ignoring bridge to bus %d\n", bus, device, function, secondaryBus)
		return dev, nil
	}

	return dev, b.scanBus(secondaryBus)
}

func (b *Bus) addDevice(dev Device) *kernel.Error {
	if b.deviceCount == len(b.devices) {
		return ErrRegistryFull
	}

	b.devices[b.deviceCount] = dev
	b.deviceCount++
	return nil
}
