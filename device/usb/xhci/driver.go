package xhci

import (
	"io"
	"mikango/device/pci"
	"mikango/kernel"
	"mikango/kernel/kfmt"
)

// Class is the PCI class code of an xHCI host controller.
var Class = pci.ClassCode{Base: 0x0c, Sub: 0x03, Interface: 0x30}

var openFn = Open

// Driver brings up the host controller found at a PCI location.
type Driver struct {
	bus *pci.Bus
	dev pci.Device

	controller Controller
}

// Attach binds d to the host controller dev on bus.
func (d *Driver) Attach(bus *pci.Bus, dev pci.Device) {
	d.bus, d.dev, d.controller = bus, dev, nil
}

// DriverName returns the name of the driver.
func (d *Driver) DriverName() string {
	return "xhci"
}

// DriverVersion returns the driver version.
func (d *Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit locates the controller registers through BAR0, opens the
// controller and starts it.
func (d *Driver) DriverInit(w io.Writer) *kernel.Error {
	bar, err := d.bus.ReadBAR(d.dev, 0)
	if err != nil {
		return err
	}

	mmioBase := uintptr(bar)
	kfmt.Fprintf(w, "%d:%d.%d mmio base 0x%x\n", d.dev.Bus, d.dev.Device, d.dev.Function, mmioBase)

	ctrl, err := openFn(mmioBase)
	if err != nil {
		return err
	}

	if err = ctrl.Initialize(); err != nil {
		return err
	}

	if err = ctrl.Run(); err != nil {
		return err
	}

	d.controller = ctrl
	return nil
}

// Controller returns the running controller or nil if DriverInit has not
// succeeded.
func (d *Driver) Controller() Controller {
	return d.controller
}
