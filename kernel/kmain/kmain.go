// Package kmain contains the kernel entry point. It brings up the CPU tables,
// paging, the PCI bus and the USB host controller and then services events
// posted by interrupt handlers forever.
package kmain

import (
	"mikango/device/mouse"
	"mikango/device/pci"
	"mikango/device/usb/xhci"
	"mikango/kernel"
	"mikango/kernel/apic"
	"mikango/kernel/cpu"
	"mikango/kernel/gate"
	"mikango/kernel/hal"
	"mikango/kernel/hal/boot"
	"mikango/kernel/kfmt"
	"mikango/kernel/mem/vmm"
	"mikango/kernel/segment"
	"mikango/kernel/sync"
	"unsafe"
)

var (
	errNoXHCIDevice = &kernel.Error{Module: "kmain", Message: "no xHCI host controller found"}
	errNoLocalAPIC  = &kernel.Error{Module: "kmain", Message: "CPU has no local APIC to deliver MSIs to"}

	// kernelCtx is static as interrupt handlers and driver callbacks need
	// to reach it.
	kernelCtx Kernel

	portIO pci.PortIO = cpu.Ports{}

	panicFn          = kfmt.Panic
	setupSegmentsFn  = segment.Setup
	setupPagingFn    = vmm.SetupIdentityPageTable
	loadIDTFn        = (*gate.Table).Load
	hasLocalAPICFn   = cpu.HasLocalAPIC
	bspIDFn          = apic.BootstrapProcessorID
	endOfInterruptFn = apic.EndOfInterrupt
	bindNativeFn     = xhci.BindNative
	openControllerFn = openController
)

// Kernel owns the state set up during bring-up.
type Kernel struct {
	gdt segment.Table
	idt gate.Table
	pci pci.Bus

	xhciDriver xhci.Driver
	controller xhci.Controller

	frameBuffer *boot.FrameBufferConfig
	cursor      mouse.Cursor
}

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. It receives the frame buffer description prepared by
// the loader and the entry points of the native xHCI component.
//
// Kmain is not expected to return. Bring-up failures end in a kernel panic.
func Kmain(frameBufferConfigPtr, xhciEntryPointsPtr uintptr) {
	err := kernelCtx.bringUp(
		boot.FrameBufferConfigAt(frameBufferConfigPtr),
		(*xhci.NativeEntryPoints)(unsafe.Pointer(xhciEntryPointsPtr)),
	)
	if err != nil {
		panicFn(err)
		return
	}

	for {
		kernelCtx.serviceOnce()
	}
}

// bringUp runs the one-time initialization sequence. It runs with
// interrupts disabled and only enables them once the controller is running.
func (k *Kernel) bringUp(fb *boot.FrameBufferConfig, native *xhci.NativeEntryPoints) *kernel.Error {
	cs := sync.DisableInterrupts()
	initMainQueue(cs)

	if err := fb.Validate(); err != nil {
		return err
	}
	k.frameBuffer = fb
	k.cursor = mouse.NewCursor(nil, int(fb.HorizontalResolution), int(fb.VerticalResolution))

	setupSegmentsFn(&k.gdt)
	if err := setupPagingFn(); err != nil {
		return err
	}

	k.pci = pci.NewBus(portIO)
	if err := k.pci.ScanAllBus(); err != nil {
		return err
	}
	for _, dev := range k.pci.Devices() {
		kfmt.Printf("[pci] %d:%d.%d class %2x.%2x.%2x\n",
			dev.Bus, dev.Device, dev.Function,
			dev.Class.Base, dev.Class.Sub, dev.Class.Interface,
		)
	}

	xhciDev, err := k.pci.FindByClass(xhci.Class)
	if err != nil {
		return errNoXHCIDevice
	}

	if err = k.idt.HandleInterrupt(gate.XHCI, 0, xhciInterruptHandler); err != nil {
		return err
	}
	loadIDTFn(&k.idt)

	if !hasLocalAPICFn() {
		return errNoLocalAPIC
	}

	bspID := bspIDFn()
	kfmt.Printf("[kmain] routing xHCI interrupts to APIC %d vector 0x%x\n", bspID, uint8(gate.XHCI))
	if err = k.pci.ConfigureMSIFixedDestination(xhciDev, bspID, pci.TriggerLevel, pci.DeliveryFixed, uint8(gate.XHCI), 0); err != nil {
		return err
	}

	if err = bindNativeFn(native); err != nil {
		return err
	}

	if k.controller, err = openControllerFn(k, xhciDev); err != nil {
		return err
	}

	cs.Exit()

	xhci.RegisterMouseObserver(onMouseMove)
	k.controller.ConfigurePort()

	return nil
}

// openController starts the host controller driver for dev.
func openController(k *Kernel, dev pci.Device) (xhci.Controller, *kernel.Error) {
	k.xhciDriver.Attach(&k.pci, dev)
	if err := hal.InitDriver(&k.xhciDriver); err != nil {
		return nil, err
	}

	return k.xhciDriver.Controller(), nil
}

// serviceOnce handles one queued message. If the queue is empty it halts
// until the next interrupt. Interrupts are re-enabled and the CPU halted
// without a gap so a message posted after the emptiness check always wakes
// the CPU.
func (k *Kernel) serviceOnce() {
	cs := sync.DisableInterrupts()
	events := mainQueue.Borrow(cs)

	msg, err := events.queue.Front()
	if err != nil {
		cs.ExitAndHalt()
		return
	}

	_ = events.queue.Pop()
	dropped := events.takeDropped()
	cs.Exit()

	if dropped != 0 {
		kfmt.Printf("[kmain] dropped %d notifications: main queue full\n", dropped)
	}

	k.dispatch(msg)
}

func (k *Kernel) dispatch(msg Message) {
	switch msg.Type {
	case MessageXHCIInterrupt:
		xhci.DrainEvents(k.controller)
	default:
		kfmt.Printf("[kmain] unknown message type %d\n", uint8(msg.Type))
	}
}

// xhciInterruptHandler runs in interrupt context whenever the host
// controller signals an MSI.
func xhciInterruptHandler() {
	postFromISR(Message{Type: MessageXHCIInterrupt})
	endOfInterruptFn()
}

// onMouseMove is called by the HID mouse driver while the event ring is
// being drained.
func onMouseMove(dx, dy int8) {
	kernelCtx.cursor.MoveRelative(dx, dy)
}
