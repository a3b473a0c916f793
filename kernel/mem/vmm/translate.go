package vmm

import "mikango/kernel"

// Translate returns the physical address that corresponds to the supplied
// virtual address under the page tables rooted at rootAddr, or
// ErrInvalidMapping if the virtual address is not mapped.
func Translate(rootAddr, virtAddr uintptr) (uintptr, *kernel.Error) {
	pte, level, err := leafForAddress(rootAddr, virtAddr)
	if err != nil {
		return 0, err
	}

	// The leaf maps a page of 1 << pageLevelShifts[level] bytes. Bits below
	// that in the entry are flags (or PAT for huge pages).
	pageMask := uintptr(1)<<pageLevelShifts[level] - 1
	return pte.Address()&^pageMask + PageOffset(virtAddr, level), nil
}

// PageOffset returns the offset of virtAddr within a page mapped at the
// given page level.
func PageOffset(virtAddr uintptr, level uint8) uintptr {
	return virtAddr & ((1 << pageLevelShifts[level]) - 1)
}
