package cpu

var (
	portWriteDwordFn = PortWriteDword
	portReadDwordFn  = PortReadDword
)

// Ports provides 32-bit access to the I/O port space. It is the hardware
// backed implementation of the port interfaces consumed by bus drivers.
type Ports struct{}

// WriteDword writes val to port.
func (Ports) WriteDword(port uint16, val uint32) {
	portWriteDwordFn(port, val)
}

// ReadDword reads a 32-bit value from port.
func (Ports) ReadDword(port uint16) uint32 {
	return portReadDwordFn(port)
}
