package vmm

import (
	"math/rand"
	"mikango/kernel/cpu"
	"mikango/kernel/mem"
	"runtime"
	"testing"
	"unsafe"
)

func TestIdentityMapBuild(t *testing.T) {
	m := new(IdentityMap)

	if err := m.Build(); err != nil {
		t.Fatal(err)
	}

	if err := m.Build(); err != ErrAlreadyBuilt {
		t.Fatalf("expected ErrAlreadyBuilt; got %v", err)
	}

	for i := 0; i < identityTableCount; i++ {
		if addr := uintptr(unsafe.Pointer(m.table(i))); addr%uintptr(mem.PageSize) != 0 {
			t.Fatalf("expected table %d to be page aligned; got 0x%x", i, addr)
		}
	}

	pml4, pdp := m.table(identityPML4), m.table(identityPDP)

	if exp := uintptr(unsafe.Pointer(pdp)) | 0x003; uintptr(pml4[0]) != exp {
		t.Errorf("expected PML4[0] to be 0x%x; got 0x%x", exp, uintptr(pml4[0]))
	}
	for i := 1; i < pageTableEntries; i++ {
		if pml4[i] != 0 {
			t.Errorf("expected PML4[%d] to be empty; got 0x%x", i, uintptr(pml4[i]))
		}
	}

	for i := 0; i < pageTableEntries; i++ {
		if i >= identityPDCount {
			if pdp[i] != 0 {
				t.Errorf("expected PDP[%d] to be empty; got 0x%x", i, uintptr(pdp[i]))
			}
			continue
		}

		pd := m.table(identityPD0 + i)
		if exp := uintptr(unsafe.Pointer(pd)) | 0x003; uintptr(pdp[i]) != exp {
			t.Errorf("expected PDP[%d] to be 0x%x; got 0x%x", i, exp, uintptr(pdp[i]))
		}

		for j := 0; j < pageTableEntries; j++ {
			exp := uintptr(i)<<30 | uintptr(j)<<21 | 0x083
			if uintptr(pd[j]) != exp {
				t.Fatalf("expected PD[%d][%d] to be 0x%x; got 0x%x", i, j, exp, uintptr(pd[j]))
			}
		}
	}
}

func TestIdentityMapCoverage(t *testing.T) {
	if runtime.GOARCH != "amd64" {
		t.Skip("test requires amd64 runtime; skipping")
	}

	m := new(IdentityMap)
	if err := m.Build(); err != nil {
		t.Fatal(err)
	}

	limit := mem.IdentityMappedSize.Uintptr()
	addrs := []uintptr{
		0,
		1,
		0x1fffff,
		0x200000,
		1<<30 - 1,
		1 << 30,
		0xfee000b0,
		0xf0000000,
		limit - 1,
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 4096; i++ {
		addrs = append(addrs, uintptr(rng.Int63n(int64(limit))))
	}

	for _, addr := range addrs {
		got, err := m.Translate(addr)
		if err != nil {
			t.Fatalf("[0x%x] unexpected error: %v", addr, err)
		}
		if got != addr {
			t.Fatalf("[0x%x] expected identity translation; got 0x%x", addr, got)
		}

		pte, level, err := leafForAddress(m.RootAddr(), addr)
		if err != nil {
			t.Fatal(err)
		}
		if level != 2 || !pte.HasFlags(FlagHugePage) {
			t.Fatalf("[0x%x] expected a 2Mb leaf at the page directory level", addr)
		}
		if exp := addr &^ (mem.HugePageSize.Uintptr() - 1); pte.Address() != exp {
			t.Fatalf("[0x%x] expected leaf address 0x%x; got 0x%x", addr, exp, pte.Address())
		}
	}

	for _, addr := range []uintptr{limit, limit + 0x1234, 1 << 39, 0xffff800000000000} {
		if _, err := m.Translate(addr); err != ErrInvalidMapping {
			t.Errorf("[0x%x] expected ErrInvalidMapping; got %v", addr, err)
		}
	}
}

func TestSetupIdentityPageTable(t *testing.T) {
	defer func() {
		switchPDTFn = cpu.SwitchPDT
		kernelIdentityMap.built = false
	}()

	var loaded uintptr
	switchPDTFn = func(addr uintptr) { loaded = addr }

	if err := SetupIdentityPageTable(); err != nil {
		t.Fatal(err)
	}

	if exp := kernelIdentityMap.RootAddr(); loaded != exp {
		t.Fatalf("expected CR3 to be loaded with 0x%x; got 0x%x", exp, loaded)
	}

	if err := SetupIdentityPageTable(); err != ErrAlreadyBuilt {
		t.Fatalf("expected ErrAlreadyBuilt; got %v", err)
	}
}
