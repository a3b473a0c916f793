package xhci

import (
	"mikango/kernel"
	"unsafe"
)

// NativeEntryPoints holds the addresses of the C ABI entry points of the
// native controller. The boot shim that links the native component fills
// it in; its layout is shared with that shim.
type NativeEntryPoints struct {
	// Construct(handle *Controller, mmioBase uintptr)
	Construct uintptr

	// Initialize(handle) int; a positive result is an error.
	Initialize uintptr

	// Run(handle) int; a positive result is an error.
	Run uintptr

	// ConfigurePort(handle)
	ConfigurePort uintptr

	// ProcessEvent(handle) int; a positive result is an error.
	ProcessEvent uintptr

	// HasPendingEvent(handle) bool
	HasPendingEvent uintptr

	// RegisterMouseObserver(observer func(int8, int8))
	RegisterMouseObserver uintptr
}

func (e *NativeEntryPoints) complete() bool {
	return e.Construct != 0 && e.Initialize != 0 && e.Run != 0 &&
		e.ConfigurePort != 0 && e.ProcessEvent != 0 &&
		e.HasPendingEvent != 0 && e.RegisterMouseObserver != 0
}

// nativeHandleSize is the storage reserved for the native controller object.
const nativeHandleSize = 128

// nativeController is the Controller backed by the native component.
type nativeController struct {
	handle [nativeHandleSize]byte
	open   bool
}

var (
	entryPoints *NativeEntryPoints

	// only one host controller is supported so its handle is static.
	controller nativeController

	ccall1Fn                 = ccall1
	ccall2Fn                 = ccall2
	observerEntryFn          = mouseObserverEntry
	registerNativeObserverFn = registerNativeObserver
)

// BindNative makes the native controller described by entry available to
// Open. An incomplete table leaves the binding unchanged and returns
// ErrNativeUnavailable.
func BindNative(entry *NativeEntryPoints) *kernel.Error {
	if entry == nil || !entry.complete() {
		return ErrNativeUnavailable
	}

	entryPoints = entry
	return nil
}

// Open constructs the native controller for the host controller whose
// registers are mapped at mmioBase.
func Open(mmioBase uintptr) (Controller, *kernel.Error) {
	if entryPoints == nil {
		return nil, ErrNativeUnavailable
	}

	if controller.open {
		return nil, ErrAlreadyOpen
	}

	ccall2Fn(entryPoints.Construct, controller.handlePtr(), mmioBase)
	controller.open = true

	// An observer registered before the controller existed still needs to
	// reach the class driver.
	if mouseObserver != nil {
		registerNativeObserverFn()
	}

	return &controller, nil
}

func (c *nativeController) handlePtr() uintptr {
	return uintptr(unsafe.Pointer(&c.handle[0]))
}

func (c *nativeController) Initialize() *kernel.Error {
	if int32(ccall1Fn(entryPoints.Initialize, c.handlePtr())) > 0 {
		return ErrInitialize
	}
	return nil
}

func (c *nativeController) Run() *kernel.Error {
	if int32(ccall1Fn(entryPoints.Run, c.handlePtr())) > 0 {
		return ErrRun
	}
	return nil
}

func (c *nativeController) ConfigurePort() {
	ccall1Fn(entryPoints.ConfigurePort, c.handlePtr())
}

func (c *nativeController) HasPendingEvent() bool {
	return uint8(ccall1Fn(entryPoints.HasPendingEvent, c.handlePtr())) != 0
}

func (c *nativeController) ProcessEvent() *kernel.Error {
	if int32(ccall1Fn(entryPoints.ProcessEvent, c.handlePtr())) > 0 {
		return ErrProcessEvent
	}
	return nil
}

// registerNativeObserver points the HID mouse driver at the C ABI entry
// that forwards to dispatchMouseMove.
func registerNativeObserver() {
	if entryPoints == nil {
		return
	}
	ccall1Fn(entryPoints.RegisterMouseObserver, observerEntryFn())
}

// ccall1 calls the C function at fn with one argument on the current stack
// and returns the value left in RAX.
func ccall1(fn, a0 uintptr) uintptr

// ccall2 calls the C function at fn with two arguments on the current stack
// and returns the value left in RAX.
func ccall2(fn, a0, a1 uintptr) uintptr

// mouseObserverEntry returns the address of a C ABI function
// void(int8_t dx, int8_t dy) that calls dispatchMouseMove.
func mouseObserverEntry() uintptr
