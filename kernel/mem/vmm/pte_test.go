package vmm

import "testing"

func TestPageTableEntryFlags(t *testing.T) {
	specs := []struct {
		set   PageTableEntryFlag
		query PageTableEntryFlag
		exp   bool
	}{
		{0, FlagPresent, false},
		{FlagPresent, FlagPresent, true},
		{FlagPresent | FlagRW, FlagPresent | FlagRW, true},
		{FlagPresent, FlagPresent | FlagRW, false},
		{FlagPresent | FlagRW | FlagHugePage, FlagHugePage, true},
		{FlagRW, 0, true},
	}

	for specIndex, spec := range specs {
		var pte pageTableEntry
		pte.SetFlags(spec.set)

		if got := pte.HasFlags(spec.query); got != spec.exp {
			t.Errorf("[spec %d] expected HasFlags(0x%x) on 0x%x to return %t; got %t", specIndex, uintptr(spec.query), uintptr(pte), spec.exp, got)
		}
	}

	if exp := uintptr(0x83); uintptr(FlagPresent|FlagRW|FlagHugePage) != exp {
		t.Fatalf("expected leaf flags to encode as 0x%x; got 0x%x", exp, uintptr(FlagPresent|FlagRW|FlagHugePage))
	}
}

func TestPageTableEntryAddressEncoding(t *testing.T) {
	var (
		pte      pageTableEntry
		physAddr = uintptr(123 << 21)
	)

	pte.SetFlags(FlagPresent | FlagRW | FlagHugePage)
	pte.SetAddress(physAddr)

	if got := pte.Address(); got != physAddr {
		t.Fatalf("expected pte.Address() to return 0x%x; got 0x%x", physAddr, got)
	}

	if !pte.HasFlags(FlagPresent | FlagRW | FlagHugePage) {
		t.Fatal("expected SetAddress to preserve the entry flags")
	}

	// bits outside the address range are discarded
	pte.SetAddress(0xfff0_0000_0000_0fff)
	if got := pte.Address(); got != 0 {
		t.Fatalf("expected unaligned address bits to be masked out; got 0x%x", got)
	}
}
