package vmm

import (
	"runtime"
	"testing"
	"unsafe"
)

func TestPtePtrFn(t *testing.T) {
	// Dummy test to keep coverage happy
	if exp, got := unsafe.Pointer(uintptr(123)), ptePtrFn(uintptr(123)); exp != got {
		t.Fatalf("expected ptePtrFn to return %v; got %v", exp, got)
	}
}

func TestWalkAmd64(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("test requires amd64 runtime; skipping")
	}

	defer func(origPtePtr func(uintptr) unsafe.Pointer) {
		ptePtrFn = origPtePtr
	}(ptePtrFn)

	// This address breaks down to:
	// p4 index: 1
	// p3 index: 2
	// p2 index: 3
	// p1 index: 4
	// offset  : 1024
	targetAddr := uintptr(0x8080604400)

	var (
		rootAddr = uintptr(0x1000)
		// each entry points to a table at (level+2) * 0x1000
		entries = [pageLevels]pageTableEntry{
			0x2000 | pageTableEntry(FlagPresent),
			0x3000 | pageTableEntry(FlagPresent),
			0x4000 | pageTableEntry(FlagPresent),
			0x5000 | pageTableEntry(FlagPresent),
		}
		expEntryAddr = [pageLevels]uintptr{
			0x1000 + 1*8,
			0x2000 + 2*8,
			0x3000 + 3*8,
			0x4000 + 4*8,
		}
	)

	specs := []struct {
		descr      string
		hugeAt     int
		abortAt    int
		expVisited int
	}{
		{"full walk", -1, -1, pageLevels},
		{"walker aborts", -1, 1, 2},
		{"huge page at p2", 2, -1, 3},
		{"huge page at p3", 1, -1, 2},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			var level int
			ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
				if entryAddr != expEntryAddr[level] {
					t.Errorf("[level %d] expected entry address 0x%x; got 0x%x", level, expEntryAddr[level], entryAddr)
				}

				pte := entries[level]
				if level == spec.hugeAt {
					pte.SetFlags(FlagHugePage)
				}
				return unsafe.Pointer(&pte)
			}

			visited := 0
			walk(rootAddr, targetAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
				if int(pteLevel) != level {
					t.Errorf("expected walker to be called for level %d; got %d", level, pteLevel)
				}
				visited++
				level++
				return int(pteLevel) != spec.abortAt
			})

			if visited != spec.expVisited {
				t.Fatalf("expected %d levels to be visited; got %d", spec.expVisited, visited)
			}
		})
	}
}
