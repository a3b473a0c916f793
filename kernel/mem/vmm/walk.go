package vmm

import (
	"mikango/kernel/mem"
	"unsafe"
)

var (
	// ptePtrFn returns a pointer to the supplied entry address. Page tables
	// live in identity mapped memory so their physical address can be
	// dereferenced directly. Tests override it to feed synthetic entries to
	// walk().
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}
)

// pageTableWalker is a function that can be passed to the walk method. The
// function receives the current page level and page table entry as its
// arguments.  If the function returns false, then the page walk is aborted.
type pageTableWalker func(pteLevel uint8, pte *pageTableEntry) bool

// walk performs a page table walk for the given virtual address starting at
// the top-level table located at rootAddr. It calls the supplied walkFn with
// the page table entry that corresponds to each page table level. The walk
// ends when walkFn returns false, when an entry maps a huge page or after
// the last level.
func walk(rootAddr, virtAddr uintptr, walkFn pageTableWalker) {
	var (
		pte                   *pageTableEntry
		tableAddr, entryIndex uintptr
	)

	tableAddr = rootAddr
	for level := uint8(0); level < pageLevels; level++ {
		// Extract the bits from virtual address that correspond to the
		// index in this level's page table
		entryIndex = (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)

		pte = (*pageTableEntry)(ptePtrFn(tableAddr + (entryIndex << mem.PointerShift)))
		if !walkFn(level, pte) {
			return
		}

		if level != 0 && pte.HasFlags(FlagHugePage) {
			return
		}

		tableAddr = pte.Address()
	}
}
