package kfmt

import (
	"mikango/kernel"
	"mikango/kernel/cpu"
)

var (
	// haltFn is mocked by tests.
	haltFn = cpu.HaltForever

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic prints a banner together with the supplied error (if not nil) to the
// console and halts the CPU with interrupts disabled. Calls to Panic never
// return; there is no reboot or recovery path.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		errRuntimePanic.Message = t
		err = errRuntimePanic
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	haltFn()
}
