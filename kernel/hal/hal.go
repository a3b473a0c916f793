// Package hal initializes device drivers and keeps track of the ones that
// are active.
package hal

import (
	"mikango/device"
	"mikango/kernel"
	"mikango/kernel/kfmt"
)

const maxActiveDrivers = 8

// ErrTooManyDrivers is returned when more than maxActiveDrivers drivers are
// initialized.
var ErrTooManyDrivers = &kernel.Error{Module: "hal", Message: "too many active drivers"}

// managedDevices tracks all initialized device drivers.
type managedDevices struct {
	activeDrivers [maxActiveDrivers]device.Driver
	activeCount   int
}

// prefixBuf is a fixed size io.Writer used to render log prefixes without
// allocating. Output that does not fit is truncated.
type prefixBuf struct {
	buf [64]byte
	len int
}

func (b *prefixBuf) Write(p []byte) (int, error) {
	n := copy(b.buf[b.len:], p)
	b.len += n
	return len(p), nil
}

func (b *prefixBuf) Bytes() []byte { return b.buf[:b.len] }

func (b *prefixBuf) Reset() { b.len = 0 }

var (
	devices managedDevices
	strBuf  prefixBuf
)

// ActiveDrivers returns the drivers that were successfully initialized.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers[:devices.activeCount]
}

// InitDriver initializes drv. Output logged by the driver is prefixed with
// its name and version.
func InitDriver(drv device.Driver) *kernel.Error {
	var w = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}

	if devices.activeCount == len(devices.activeDrivers) {
		return ErrTooManyDrivers
	}

	strBuf.Reset()
	major, minor, patch := drv.DriverVersion()
	kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
	w.Prefix = strBuf.Bytes()

	if err := drv.DriverInit(&w); err != nil {
		kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
		return err
	}

	kfmt.Fprintf(&w, "initialized\n")
	devices.activeDrivers[devices.activeCount] = drv
	devices.activeCount++
	return nil
}
