package mem

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uintptr)). The pointer
	// size for this architecture is defined as (1 << PointerShift).
	PointerShift = 3

	// PageShift is equal to log2(PageSize).
	PageShift = 12

	// PageSize defines the size of a regular page in bytes.
	PageSize = Size(1 << PageShift)

	// HugePageShift is equal to log2(HugePageSize).
	HugePageShift = 21

	// HugePageSize is the size of a page mapped by a page directory entry.
	HugePageSize = Size(1 << HugePageShift)

	// IdentityMappedSize is the amount of physical memory that is identity
	// mapped during early boot.
	IdentityMappedSize = 64 * Gb
)
