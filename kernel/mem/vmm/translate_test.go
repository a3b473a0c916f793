package vmm

import (
	"runtime"
	"testing"
	"unsafe"
)

func TestTranslateAmd64(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("test requires amd64 runtime; skipping")
	}

	defer func(origPtePtr func(uintptr) unsafe.Pointer) {
		ptePtrFn = origPtePtr
	}(ptePtrFn)

	virtAddr := uintptr(0x40123456)
	specs := []struct {
		descr    string
		present  [pageLevels]bool
		hugeAt   int
		leafAddr uintptr
		expAddr  uintptr
		expErr   bool
	}{
		{"4K page", [pageLevels]bool{true, true, true, true}, -1, 0xabc000, 0xabc456, false},
		{"2M page", [pageLevels]bool{true, true, true, false}, 2, 0xa00000, 0xb23456, false},
		{"1G page", [pageLevels]bool{true, true, false, false}, 1, 0x80000000, 0x80123456, false},
		{"missing p4", [pageLevels]bool{false, true, true, true}, -1, 0, 0, true},
		{"missing p3", [pageLevels]bool{true, false, true, true}, -1, 0, 0, true},
		{"missing p2", [pageLevels]bool{true, true, false, true}, -1, 0, 0, true},
		{"missing p1", [pageLevels]bool{true, true, true, false}, -1, 0, 0, true},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			level := 0
			ptePtrFn = func(entry uintptr) unsafe.Pointer {
				var pte pageTableEntry
				pte.SetAddress(spec.leafAddr)
				if spec.present[level] {
					pte.SetFlags(FlagPresent)
				}
				if level == spec.hugeAt {
					pte.SetFlags(FlagHugePage)
				}
				level++

				return unsafe.Pointer(&pte)
			}

			physAddr, err := Translate(0x1000, virtAddr)
			switch {
			case spec.expErr && err != ErrInvalidMapping:
				t.Fatalf("expected ErrInvalidMapping; got %v", err)
			case !spec.expErr && err != nil:
				t.Fatalf("unexpected error %v", err)
			case physAddr != spec.expAddr:
				t.Fatalf("expected physical address 0x%x; got 0x%x", spec.expAddr, physAddr)
			}
		})
	}
}
