package kernel

import "unsafe"

// Memset sets size bytes at the given address to the supplied value. Instead
// of a byte-by-byte loop it performs log2(size) copy calls which keeps zeroing
// of page-aligned tables cheap.
func Memset(addr uintptr, value byte, size uintptr) {
	if size == 0 {
		return
	}

	target := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	target[0] = value
	for index := uintptr(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}
}
