package vmm

import (
	"mikango/kernel"
	"mikango/kernel/cpu"
	"mikango/kernel/mem"
	"unsafe"
)

const (
	// identityPDCount is the number of page directories needed to map
	// mem.IdentityMappedSize with huge pages; each one covers 1Gb.
	identityPDCount = int(mem.IdentityMappedSize / mem.Gb)

	// identityTableCount is the PML4, the PDP and the page directories.
	identityTableCount = 2 + identityPDCount

	tableSize = int(mem.PageSize)

	identityPML4 = 0
	identityPDP  = 1
	identityPD0  = 2
)

var (
	// ErrAlreadyBuilt is returned by Build when the tables have already
	// been populated.
	ErrAlreadyBuilt = &kernel.Error{Module: "vmm", Message: "identity map already built"}

	switchPDTFn = cpu.SwitchPDT

	// kernelIdentityMap is the page table hierarchy that the kernel runs on.
	kernelIdentityMap IdentityMap
)

// IdentityMap owns the page tables that map the first mem.IdentityMappedSize
// bytes of the physical address space to the same virtual addresses using
// 2Mb pages.
//
// The tables are stored inside the struct so an IdentityMap must not be
// moved or copied once Build has been called.
type IdentityMap struct {
	// arena has room for one extra table so that the tables can be aligned
	// to a page boundary regardless of where the struct is placed.
	arena [(identityTableCount + 1) * tableSize]byte
	built bool
}

// table returns the index-th page aligned table inside the arena.
func (m *IdentityMap) table(index int) *pageTable {
	addr := uintptr(unsafe.Pointer(&m.arena[0]))
	skip := int((uintptr(tableSize) - addr%uintptr(tableSize)) % uintptr(tableSize))
	return (*pageTable)(unsafe.Pointer(&m.arena[skip+index*tableSize]))
}

// RootAddr returns the physical address of the PML4 table.
func (m *IdentityMap) RootAddr() uintptr {
	return uintptr(unsafe.Pointer(m.table(identityPML4)))
}

// Build populates the page tables. PML4 entry 0 points to the PDP, the
// first identityPDCount PDP entries point to one page directory each and
// every page directory entry maps a 2Mb page at the address it translates.
func (m *IdentityMap) Build() *kernel.Error {
	if m.built {
		return ErrAlreadyBuilt
	}

	var (
		tableFlags = FlagPresent | FlagRW
		pageFlags  = FlagPresent | FlagRW | FlagHugePage
		pml4       = m.table(identityPML4)
		pdp        = m.table(identityPDP)
	)

	kernel.Memset(uintptr(unsafe.Pointer(pml4)), 0, uintptr(tableSize))
	kernel.Memset(uintptr(unsafe.Pointer(pdp)), 0, uintptr(tableSize))

	pml4[0].SetAddress(uintptr(unsafe.Pointer(pdp)))
	pml4[0].SetFlags(tableFlags)

	for i := 0; i < identityPDCount; i++ {
		pd := m.table(identityPD0 + i)

		pdp[i].SetAddress(uintptr(unsafe.Pointer(pd)))
		pdp[i].SetFlags(tableFlags)

		for j := range pd {
			pd[j] = 0
			pd[j].SetAddress(uintptr(i)*mem.Gb.Uintptr() + uintptr(j)*mem.HugePageSize.Uintptr())
			pd[j].SetFlags(pageFlags)
		}
	}

	m.built = true
	return nil
}

// Activate installs the tables by loading their root into CR3.
func (m *IdentityMap) Activate() {
	switchPDTFn(m.RootAddr())
}

// Translate returns the physical address that virtAddr maps to under m.
func (m *IdentityMap) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	return Translate(m.RootAddr(), virtAddr)
}

// SetupIdentityPageTable builds the kernel identity map and switches the CPU
// over to it.
func SetupIdentityPageTable() *kernel.Error {
	if err := kernelIdentityMap.Build(); err != nil {
		return err
	}

	kernelIdentityMap.Activate()
	return nil
}
