package pci

type functionAddr struct {
	bus, device, function uint8
}

// configSpace simulates the configuration space of a set of functions
// behind the address/data port pair. Registers of absent functions read as
// all ones.
type configSpace struct {
	addr    uint32
	present map[functionAddr]bool
	regs    map[uint32]uint32
}

func newConfigSpace() *configSpace {
	return &configSpace{
		present: make(map[functionAddr]bool),
		regs:    make(map[uint32]uint32),
	}
}

func (c *configSpace) WriteDword(port uint16, val uint32) {
	switch port {
	case configAddressPort:
		c.addr = val
	case configDataPort:
		c.regs[c.addr] = val
	}
}

func (c *configSpace) ReadDword(port uint16) uint32 {
	if port != configDataPort || c.addr&addressEnableBit == 0 {
		return 0xffffffff
	}

	fn := functionAddr{
		bus:      uint8(c.addr >> 16),
		device:   uint8(c.addr>>11) & 0x1f,
		function: uint8(c.addr>>8) & 0x7,
	}
	if !c.present[fn] {
		return 0xffffffff
	}

	return c.regs[c.addr]
}

func (c *configSpace) set(fn functionAddr, reg uint8, val uint32) {
	c.regs[MakeAddress(fn.bus, fn.device, fn.function, reg)] = val
}

func (c *configSpace) get(fn functionAddr, reg uint8) uint32 {
	return c.regs[MakeAddress(fn.bus, fn.device, fn.function, reg)]
}

func (c *configSpace) addFunction(fn functionAddr, vendorID, deviceID uint16, class ClassCode, headerType uint8) {
	c.present[fn] = true
	c.set(fn, RegVendorDeviceID, uint32(deviceID)<<16|uint32(vendorID))
	c.set(fn, RegClassCode, uint32(class.Base)<<24|uint32(class.Sub)<<16|uint32(class.Interface)<<8)
	c.set(fn, RegHeaderType, uint32(headerType)<<16)
}

func (c *configSpace) addBridge(fn functionAddr, headerType, secondaryBus uint8) {
	c.addFunction(fn, 0x8086, 0x1234, ClassCode{Base: 0x06, Sub: 0x04}, headerType|0x01)
	c.set(fn, RegBusNumbers, uint32(secondaryBus)<<16|uint32(secondaryBus)<<8|uint32(fn.bus))
}
