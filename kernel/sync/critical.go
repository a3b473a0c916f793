// Package sync provides the synchronization primitives of a single-CPU
// kernel whose only source of concurrency is interrupts. Mutual exclusion is
// achieved by running with interrupts disabled; a CriticalSection value is
// the proof that this is the case.
package sync

import (
	"mikango/kernel"
	"mikango/kernel/cpu"
	"mikango/kernel/kfmt"
)

var (
	// ErrNoCriticalSection is raised when a cell is borrowed with a nil
	// token.
	ErrNoCriticalSection = &kernel.Error{Module: "sync", Message: "IRQCell borrowed outside a critical section"}

	interruptFlag InterruptFlag = cpuInterruptFlag{}

	panicFn = kfmt.Panic
)

// InterruptFlag controls the interrupt flag of the current CPU.
type InterruptFlag interface {
	// Disable clears the interrupt flag.
	Disable()

	// Enable sets the interrupt flag.
	Enable()

	// EnableAndHalt sets the interrupt flag and halts with no instruction
	// in between.
	EnableAndHalt()
}

type cpuInterruptFlag struct{}

func (cpuInterruptFlag) Disable()       { cpu.DisableInterrupts() }
func (cpuInterruptFlag) Enable()        { cpu.EnableInterrupts() }
func (cpuInterruptFlag) EnableAndHalt() { cpu.EnableInterruptsAndHalt() }

// SetInterruptFlag replaces the implementation used to toggle the interrupt
// flag and returns the previous one. Hosted tests use it to trace critical
// sections instead of executing privileged instructions.
func SetInterruptFlag(f InterruptFlag) InterruptFlag {
	prev := interruptFlag
	interruptFlag = f
	return prev
}

// CriticalSection is a token that can only be obtained while interrupts are
// disabled on the current CPU. Functions that touch state shared with an
// interrupt handler take one as an argument. The only implementations are
// the ones returned by DisableInterrupts and InterruptContext.
type CriticalSection interface {
	// Exit re-enables interrupts. It is a no-op for interrupt context
	// tokens.
	Exit()

	// ExitAndHalt re-enables interrupts and halts until the next interrupt
	// with no instruction in between, so an interrupt that became pending
	// while the section was held wakes the CPU instead of being lost. It
	// is the only safe way to idle after checking for work inside a
	// critical section. It is a no-op for interrupt context tokens.
	ExitAndHalt()

	criticalSection()
}

// cliSection is opened by DisableInterrupts.
type cliSection struct{}

func (cliSection) Exit()            { interruptFlag.Enable() }
func (cliSection) ExitAndHalt()     { interruptFlag.EnableAndHalt() }
func (cliSection) criticalSection() {}

// isrSection is held by code running inside an interrupt gate; IRETQ
// restores the interrupt flag so it is never touched here.
type isrSection struct{}

func (isrSection) Exit()            {}
func (isrSection) ExitAndHalt()     {}
func (isrSection) criticalSection() {}

// DisableInterrupts clears the interrupt flag and returns a token for the
// resulting critical section. The section must be closed with Exit or
// ExitAndHalt.
func DisableInterrupts() CriticalSection {
	interruptFlag.Disable()
	return cliSection{}
}

// InterruptContext returns a token for code running inside an interrupt
// gate, where the CPU has already cleared the interrupt flag.
func InterruptContext() CriticalSection {
	return isrSection{}
}

// IRQCell holds a value shared between interrupt handlers and the main flow
// of control. The value is only reachable through Borrow, which requires a
// CriticalSection.
type IRQCell[T any] struct {
	value T
}

// Borrow returns a pointer to the cell contents. The pointer must not be
// retained past the end of cs.
func (c *IRQCell[T]) Borrow(cs CriticalSection) *T {
	if cs == nil {
		panicFn(ErrNoCriticalSection)
	}
	return &c.value
}
