package pci

import "mikango/kernel"

const (
	capabilityMSI  = uint8(0x05)
	capabilityMSIX = uint8(0x11)

	// maxCapabilityHops bounds the capability list walk. Capabilities are
	// dword aligned and live above the 64-byte standard header so a valid
	// list has at most 48 entries.
	maxCapabilityHops = 48

	// msiBaseAddress is the address window of the local APICs.
	msiBaseAddress = uint32(0xfee00000)

	msiLevelTriggerBits = uint32(0xc000)

	configSpaceSize = 0x100
)

var (
	// ErrNoMSICapability is returned when a device exposes neither an MSI
	// nor an MSI-X capability.
	ErrNoMSICapability = &kernel.Error{Module: "pci", Message: "device has no MSI capability"}

	// ErrMalformedMSICapability is returned when an MSI capability block
	// extends past the end of the configuration space.
	ErrMalformedMSICapability = &kernel.Error{Module: "pci", Message: "MSI capability exceeds configuration space"}

	// ErrMSIXNotImplemented is returned when a device only supports MSI-X.
	ErrMSIXNotImplemented = &kernel.Error{Module: "pci", Message: "MSI-X is not implemented"}
)

// TriggerMode selects edge or level triggered delivery of a message.
type TriggerMode uint8

// Supported trigger modes.
const (
	TriggerEdge TriggerMode = iota
	TriggerLevel
)

// DeliveryMode is the APIC delivery mode encoded in bits 8-10 of the message
// data.
type DeliveryMode uint8

// Supported delivery modes.
const (
	DeliveryFixed          DeliveryMode = 0
	DeliveryLowestPriority DeliveryMode = 1
	DeliverySMI            DeliveryMode = 2
	DeliveryNMI            DeliveryMode = 4
	DeliveryINIT           DeliveryMode = 5
	DeliveryExtINT         DeliveryMode = 7
)

// CapabilityHeader is the first dword of any entry in the capability list.
type CapabilityHeader uint32

// ID returns the capability ID.
func (h CapabilityHeader) ID() uint8 { return uint8(h) }

// NextPtr returns the configuration space offset of the next capability or
// 0 at the end of the list.
func (h CapabilityHeader) NextPtr() uint8 { return uint8(h >> 8) }

// MSICapabilityHeader is the first dword of the MSI capability.
//
//	bits 0-7    capability ID
//	bits 8-15   next pointer
//	bit  16     MSI enable
//	bits 17-19  multiple message capable
//	bits 20-22  multiple message enable
//	bit  23     64-bit address capable
//	bit  24     per-vector masking capable
type MSICapabilityHeader uint32

func (h MSICapabilityHeader) bits(shift, width uint) uint32 {
	return uint32(h) >> shift & (1<<width - 1)
}

func (h *MSICapabilityHeader) setBits(shift, width uint, v uint32) {
	mask := uint32(1)<<width - 1
	*h = MSICapabilityHeader(uint32(*h)&^(mask<<shift) | (v&mask)<<shift)
}

// CapabilityID returns the capability ID.
func (h MSICapabilityHeader) CapabilityID() uint8 { return uint8(h.bits(0, 8)) }

// NextPtr returns the offset of the next capability.
func (h MSICapabilityHeader) NextPtr() uint8 { return uint8(h.bits(8, 8)) }

// MSIEnable returns the MSI enable bit.
func (h MSICapabilityHeader) MSIEnable() bool { return h.bits(16, 1) == 1 }

// SetMSIEnable updates the MSI enable bit.
func (h *MSICapabilityHeader) SetMSIEnable(v bool) {
	var b uint32
	if v {
		b = 1
	}
	h.setBits(16, 1, b)
}

// MultiMsgCapable returns log2 of the number of vectors the device can
// request.
func (h MSICapabilityHeader) MultiMsgCapable() uint8 { return uint8(h.bits(17, 3)) }

// MultiMsgEnable returns log2 of the number of vectors allocated to the
// device.
func (h MSICapabilityHeader) MultiMsgEnable() uint8 { return uint8(h.bits(20, 3)) }

// SetMultiMsgEnable updates log2 of the number of allocated vectors.
func (h *MSICapabilityHeader) SetMultiMsgEnable(v uint8) { h.setBits(20, 3, uint32(v)) }

// Addr64Capable returns true if the capability carries an upper message
// address dword.
func (h MSICapabilityHeader) Addr64Capable() bool { return h.bits(23, 1) == 1 }

// PerVectorMaskCapable returns true if the capability carries mask and
// pending dwords.
func (h MSICapabilityHeader) PerVectorMaskCapable() bool { return h.bits(24, 1) == 1 }

// MSICapability is the decoded MSI capability block. MsgUpperAddr is only
// meaningful if the header is 64-bit capable; MaskBits and PendingBits only
// if it is per-vector mask capable.
type MSICapability struct {
	Header       MSICapabilityHeader
	MsgAddr      uint32
	MsgUpperAddr uint32
	MsgData      uint32
	MaskBits     uint32
	PendingBits  uint32
}

// Size returns the length in bytes of the capability block described by h.
func (h MSICapabilityHeader) Size() int {
	size := 12
	if h.Addr64Capable() {
		size += 4
	}
	if h.PerVectorMaskCapable() {
		size += 8
	}
	return size
}

// readMSICapability decodes the MSI capability found at capAddr. The
// offsets of the data, mask and pending dwords depend on the header bits.
func (b *Bus) readMSICapability(dev Device, capAddr uint8) MSICapability {
	var msiCap MSICapability

	msiCap.Header = MSICapabilityHeader(b.ReadConfig(dev, capAddr))
	msiCap.MsgAddr = b.ReadConfig(dev, capAddr+4)

	msgDataAddr := capAddr + 8
	if msiCap.Header.Addr64Capable() {
		msiCap.MsgUpperAddr = b.ReadConfig(dev, capAddr+8)
		msgDataAddr = capAddr + 12
	}

	msiCap.MsgData = b.ReadConfig(dev, msgDataAddr)

	if msiCap.Header.PerVectorMaskCapable() {
		msiCap.MaskBits = b.ReadConfig(dev, msgDataAddr+4)
		msiCap.PendingBits = b.ReadConfig(dev, msgDataAddr+8)
	}

	return msiCap
}

// writeMSICapability stores msiCap at capAddr using the same layout as
// readMSICapability.
func (b *Bus) writeMSICapability(dev Device, capAddr uint8, msiCap *MSICapability) {
	b.WriteConfig(dev, capAddr, uint32(msiCap.Header))
	b.WriteConfig(dev, capAddr+4, msiCap.MsgAddr)

	msgDataAddr := capAddr + 8
	if msiCap.Header.Addr64Capable() {
		b.WriteConfig(dev, capAddr+8, msiCap.MsgUpperAddr)
		msgDataAddr = capAddr + 12
	}

	b.WriteConfig(dev, msgDataAddr, msiCap.MsgData)

	if msiCap.Header.PerVectorMaskCapable() {
		b.WriteConfig(dev, msgDataAddr+4, msiCap.MaskBits)
		b.WriteConfig(dev, msgDataAddr+8, msiCap.PendingBits)
	}
}

func (b *Bus) configureMSIRegister(dev Device, capAddr uint8, msgAddr, msgData uint32, numVectorExponent uint8) *kernel.Error {
	header := MSICapabilityHeader(b.ReadConfig(dev, capAddr))
	if int(capAddr)+header.Size() > configSpaceSize {
		return ErrMalformedMSICapability
	}

	msiCap := b.readMSICapability(dev, capAddr)

	if capable := msiCap.Header.MultiMsgCapable(); capable <= numVectorExponent {
		msiCap.Header.SetMultiMsgEnable(capable)
	} else {
		msiCap.Header.SetMultiMsgEnable(numVectorExponent)
	}

	msiCap.Header.SetMSIEnable(true)
	msiCap.MsgAddr = msgAddr
	msiCap.MsgData = msgData

	b.writeMSICapability(dev, capAddr, &msiCap)
	return nil
}

// ConfigureMSI enables MSI for dev so that it delivers msgData to msgAddr.
// Up to 2^numVectorExponent vectors are requested, limited to what the
// device supports.
func (b *Bus) ConfigureMSI(dev Device, msgAddr, msgData uint32, numVectorExponent uint8) *kernel.Error {
	var (
		msiCapAddr, msixCapAddr uint8
		capAddr                 = uint8(b.ReadConfig(dev, RegCapabilityPtr))
	)

	for hops := 0; capAddr != 0 && hops < maxCapabilityHops; hops++ {
		header := CapabilityHeader(b.ReadConfig(dev, capAddr))
		switch header.ID() {
		case capabilityMSI:
			if msiCapAddr == 0 {
				msiCapAddr = capAddr
			}
		case capabilityMSIX:
			if msixCapAddr == 0 {
				msixCapAddr = capAddr
			}
		}

		capAddr = header.NextPtr()
	}

	switch {
	case msiCapAddr != 0:
		return b.configureMSIRegister(dev, msiCapAddr, msgAddr, msgData, numVectorExponent)
	case msixCapAddr != 0:
		return ErrMSIXNotImplemented
	default:
		return ErrNoMSICapability
	}
}

// ConfigureMSIFixedDestination routes the interrupts of dev to the local
// APIC identified by apicID as vector.
func (b *Bus) ConfigureMSIFixedDestination(dev Device, apicID uint8, trigger TriggerMode, delivery DeliveryMode, vector uint8, numVectorExponent uint8) *kernel.Error {
	msgAddr := msiBaseAddress | uint32(apicID)<<12
	msgData := uint32(delivery&0x7)<<8 | uint32(vector)
	if trigger == TriggerLevel {
		msgData |= msiLevelTriggerBits
	}

	return b.ConfigureMSI(dev, msgAddr, msgData, numVectorExponent)
}
