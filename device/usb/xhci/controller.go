// Package xhci binds the kernel to the USB 3 host controller stack. The
// protocol engine itself (rings, device contexts and the HID class drivers)
// is a native component linked into the kernel image; this package treats it
// as an opaque handle and only exposes the operations the kernel needs.
package xhci

import (
	"mikango/kernel"
	"mikango/kernel/kfmt"
)

var (
	// ErrNativeUnavailable is returned by Open when no native controller
	// implementation has been bound.
	ErrNativeUnavailable = &kernel.Error{Module: "xhci", Message: "native controller implementation not available"}

	// ErrAlreadyOpen is returned by Open when the controller has already
	// been opened.
	ErrAlreadyOpen = &kernel.Error{Module: "xhci", Message: "controller already open"}

	// ErrInitialize is returned when the controller failed to reset or
	// set up its rings.
	ErrInitialize = &kernel.Error{Module: "xhci", Message: "failed to initialize controller"}

	// ErrRun is returned when the controller could not be started.
	ErrRun = &kernel.Error{Module: "xhci", Message: "failed to start controller"}

	// ErrProcessEvent is returned when handling an event ring entry fails.
	ErrProcessEvent = &kernel.Error{Module: "xhci", Message: "failed to process event"}

	eventLog = kfmt.PrefixWriter{Prefix: []byte("[xhci] ")}
)

// Controller is a host controller.
type Controller interface {
	// Initialize resets the controller and sets up its data structures.
	Initialize() *kernel.Error

	// Run starts the controller.
	Run() *kernel.Error

	// ConfigurePort configures every root hub port with a connected device.
	ConfigurePort()

	// HasPendingEvent returns true if the primary event ring holds
	// unprocessed events.
	HasPendingEvent() bool

	// ProcessEvent handles the event at the front of the primary event ring.
	ProcessEvent() *kernel.Error
}

// MouseObserver receives the relative movement reported by a USB mouse.
// It is invoked from the HID class driver while events are being processed.
type MouseObserver func(dx, dy int8)

var mouseObserver MouseObserver

// RegisterMouseObserver installs the function that receives mouse movement.
// Only one observer is supported; a new registration replaces the previous
// one.
func RegisterMouseObserver(observer MouseObserver) {
	mouseObserver = observer
	registerNativeObserverFn()
}

// dispatchMouseMove forwards a movement report to the registered observer.
func dispatchMouseMove(dx, dy int8) {
	if mouseObserver != nil {
		mouseObserver(dx, dy)
	}
}

// DrainEvents processes events until the primary event ring of c is empty.
// A failing event does not stop the drain. It returns the number of events
// processed and the last error encountered.
func DrainEvents(c Controller) (int, *kernel.Error) {
	var (
		processed int
		lastErr   *kernel.Error
	)

	for c.HasPendingEvent() {
		if err := c.ProcessEvent(); err != nil {
			kfmt.Fprintf(&eventLog, "%s\n", err.Message)
			lastErr = err
		}
		processed++
	}

	return processed, lastErr
}
