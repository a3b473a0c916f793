package vmm

import "mikango/kernel"

var (
	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page"}
)

// PageTableEntryFlag describes a flag that can be applied to a page table entry.
type PageTableEntryFlag uintptr

// pageTableEntry describes a page table entry. These entries encode
// a physical address and a set of flags.
type pageTableEntry uintptr

// pageTable is a single 4K page table at any paging level.
type pageTable [pageTableEntries]pageTableEntry

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uintptr(pte) & uintptr(flags)) == uintptr(flags)
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte = (pageTableEntry)(uintptr(*pte) | uintptr(flags))
}

// Address returns the physical address that this entry points to. Depending
// on the level and the huge page flag this is either the next page table or
// the start of the mapped page.
func (pte pageTableEntry) Address() uintptr {
	return uintptr(pte) & ptePhysPageMask
}

// SetAddress updates the entry to point to the given page-aligned physical
// address, keeping its flags.
func (pte *pageTableEntry) SetAddress(addr uintptr) {
	*pte = (pageTableEntry)((uintptr(*pte) &^ ptePhysPageMask) | (addr & ptePhysPageMask))
}

// leafForAddress returns the entry that terminates the page table walk for a
// virtual address together with its page level. ErrInvalidMapping is returned
// if any entry along the way is not present.
func leafForAddress(rootAddr, virtAddr uintptr) (*pageTableEntry, uint8, *kernel.Error) {
	var (
		err       *kernel.Error
		entry     *pageTableEntry
		leafLevel uint8
	)

	walk(rootAddr, virtAddr, func(pteLevel uint8, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			entry = nil
			err = ErrInvalidMapping
			return false
		}

		entry, leafLevel = pte, pteLevel
		return true
	})

	return entry, leafLevel, err
}
