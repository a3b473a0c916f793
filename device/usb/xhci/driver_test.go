package xhci

import (
	"bytes"
	"mikango/device/pci"
	"mikango/kernel"
	"testing"
)

// barPorts answers every configuration read with the BAR0 value of a single
// function.
type barPorts struct {
	addr uint32
	bar0 uint32
}

func (p *barPorts) WriteDword(port uint16, val uint32) {
	if port == 0xcf8 {
		p.addr = val
	}
}

func (p *barPorts) ReadDword(port uint16) uint32 {
	if p.addr&0xfc == 0x10 {
		return p.bar0
	}
	return 0
}

func TestDriverInit(t *testing.T) {
	defer func() {
		openFn = Open
	}()

	var (
		fake    *fakeController
		gotMMIO uintptr
	)

	bus := pci.NewBus(&barPorts{bar0: 0xf0000004})
	dev := pci.Device{Bus: 0, Device: 3, Function: 0, Class: Class}

	openFn = func(mmioBase uintptr) (Controller, *kernel.Error) {
		gotMMIO = mmioBase
		return fake, nil
	}

	var drv Driver
	if drv.DriverName() != "xhci" {
		t.Fatalf("unexpected driver name %q", drv.DriverName())
	}

	t.Run("success", func(t *testing.T) {
		fake = &fakeController{}
		drv.Attach(&bus, dev)

		var out bytes.Buffer
		if err := drv.DriverInit(&out); err != nil {
			t.Fatal(err)
		}

		if gotMMIO != 0xf0000000 {
			t.Errorf("expected controller at 0xf0000000; got 0x%x", gotMMIO)
		}
		if exp := "0:3.0 mmio base 0xf0000000\n"; out.String() != exp {
			t.Errorf("expected log %q; got %q", exp, out.String())
		}
		if drv.Controller() != Controller(fake) {
			t.Error("expected driver to expose the opened controller")
		}
		if len(fake.calls) != 2 || fake.calls[0] != "initialize" || fake.calls[1] != "run" {
			t.Errorf("expected initialize then run; got %v", fake.calls)
		}
	})

	t.Run("run fails", func(t *testing.T) {
		fake = &fakeController{runErr: ErrRun}
		drv.Attach(&bus, dev)

		if err := drv.DriverInit(&bytes.Buffer{}); err != ErrRun {
			t.Fatalf("expected ErrRun; got %v", err)
		}
		if drv.Controller() != nil {
			t.Error("expected no controller after a failed init")
		}
	})

	t.Run("initialize fails", func(t *testing.T) {
		fake = &fakeController{initErr: ErrInitialize}
		drv.Attach(&bus, dev)

		if err := drv.DriverInit(&bytes.Buffer{}); err != ErrInitialize {
			t.Fatalf("expected ErrInitialize; got %v", err)
		}
		if len(fake.calls) != 1 {
			t.Errorf("expected run not to be attempted; got %v", fake.calls)
		}
	})

	t.Run("open fails", func(t *testing.T) {
		openFn = func(uintptr) (Controller, *kernel.Error) { return nil, ErrNativeUnavailable }
		drv.Attach(&bus, dev)

		if err := drv.DriverInit(&bytes.Buffer{}); err != ErrNativeUnavailable {
			t.Fatalf("expected ErrNativeUnavailable; got %v", err)
		}
	})
}
