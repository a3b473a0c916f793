package kfmt

import "io"

// ringBufferSize must be a power of 2. 4K is enough to hold a screenful of
// bring-up messages emitted before the console is attached.
const ringBufferSize = 4096

// ringBuffer keeps the most recent ringBufferSize-1 bytes written to it. When
// full, new writes overwrite the oldest data.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Write appends p to the buffer, discarding the oldest bytes on overflow.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.wIndex == rb.rIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read copies up to len(p) buffered bytes into p. It returns io.EOF once the
// buffer has been drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	// Copy the contiguous run that starts at rIndex; a wrapped buffer is
	// drained by a follow-up call.
	end := rb.wIndex
	if rb.rIndex > rb.wIndex {
		end = ringBufferSize
	}

	n := copy(p, rb.buffer[rb.rIndex:end])
	rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
	return n, nil
}
