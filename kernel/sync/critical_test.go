package sync

import (
	"mikango/kernel/kfmt"
	"testing"
)

type flagTrace []string

func (t *flagTrace) Disable()       { *t = append(*t, "cli") }
func (t *flagTrace) Enable()        { *t = append(*t, "sti") }
func (t *flagTrace) EnableAndHalt() { *t = append(*t, "sti;hlt") }

func TestCriticalSection(t *testing.T) {
	var trace flagTrace
	defer SetInterruptFlag(SetInterruptFlag(&trace))

	specs := []struct {
		descr string
		fn    func()
		exp   []string
	}{
		{
			"disable/exit",
			func() { DisableInterrupts().Exit() },
			[]string{"cli", "sti"},
		},
		{
			"disable/exit and halt",
			func() { DisableInterrupts().ExitAndHalt() },
			[]string{"cli", "sti;hlt"},
		},
		{
			"interrupt context never touches the interrupt flag",
			func() {
				cs := InterruptContext()
				cs.Exit()
				cs.ExitAndHalt()
			},
			nil,
		},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			trace = nil
			spec.fn()

			if len(trace) != len(spec.exp) {
				t.Fatalf("expected instruction trace %v; got %v", spec.exp, trace)
			}
			for i := range trace {
				if trace[i] != spec.exp[i] {
					t.Fatalf("expected instruction trace %v; got %v", spec.exp, trace)
				}
			}
		})
	}
}

func TestSetInterruptFlag(t *testing.T) {
	var trace flagTrace

	prev := SetInterruptFlag(&trace)
	if _, ok := prev.(cpuInterruptFlag); !ok {
		t.Fatalf("expected the CPU backed implementation to be installed by default; got %T", prev)
	}

	if got := SetInterruptFlag(prev); got != InterruptFlag(&trace) {
		t.Fatalf("expected SetInterruptFlag to return the replaced implementation; got %T", got)
	}
}

func TestIRQCell(t *testing.T) {
	var trace flagTrace
	defer SetInterruptFlag(SetInterruptFlag(&trace))

	var cell IRQCell[int]

	cs := DisableInterrupts()
	*cell.Borrow(cs) = 42
	cs.Exit()

	isr := InterruptContext()
	if got := *cell.Borrow(isr); got != 42 {
		t.Fatalf("expected cell to contain 42; got %d", got)
	}

	if cell.Borrow(cs) != cell.Borrow(isr) {
		t.Fatal("expected all borrows to alias the same value")
	}
}

func TestIRQCellBorrowWithoutSection(t *testing.T) {
	defer func() { panicFn = kfmt.Panic }()

	var panicked interface{}
	panicFn = func(e interface{}) { panicked = e }

	var cell IRQCell[int]
	cell.Borrow(nil)

	if panicked != ErrNoCriticalSection {
		t.Fatalf("expected a kernel panic with ErrNoCriticalSection; got %v", panicked)
	}
}
