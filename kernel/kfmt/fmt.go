// Package kfmt implements allocation-free formatted output for the kernel.
// Printf can be used from the very first instruction of the kernel entry
// point, long before a console is attached; output written before that point
// is kept in a ring buffer and replayed to the sink once SetOutputSink is
// called.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize is large enough for a 64-bit value in base 8 plus sign.
const numBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numBuf [numBufSize]byte

	// oneByte is shared by all writes of single characters so that no
	// slice headers need to be allocated while formatting.
	oneByte [1]byte

	// earlyPrintBuffer captures output while no sink is installed.
	earlyPrintBuffer ringBuffer

	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the currently installed output sink.
func GetOutputSink() io.Writer {
	return outputSink
}

// Printf writes formatted output to the active output sink. It supports the
// following subset of the fmt verbs:
//
//	%s  string or []byte
//	%d  base 10 integer, space-padded
//	%x  base 16 integer (lower-case), zero-padded
//	%o  base 8 integer, zero-padded
//	%t  boolean
//
// An optional decimal width may precede the verb. %p is not supported since
// printing pointers would pull in reflect and make the argument slice escape.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes its output to w. A nil w redirects
// output to the early print buffer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		i        int
		n        = len(format)
	)

	for i < n {
		ch := format[i]
		if ch != '%' {
			writeByte(w, ch)
			i++
			continue
		}

		// Parse the optional width followed by the verb.
		width = 0
		for i++; i < n && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i >= n {
			doWrite(w, errNoVerb)
			break
		}

		verb := format[i]
		i++

		switch verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'x', 'o', 's', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		arg := args[argIndex]
		argIndex++

		switch verb {
		case 'd':
			fmtInt(w, arg, 10, width)
		case 'x':
			fmtInt(w, arg, 16, width)
		case 'o':
			fmtInt(w, arg, 8, width)
		case 's':
			fmtString(w, arg, width)
		case 't':
			fmtBool(w, arg)
		}
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

// fmtString writes a string or []byte left-padded with spaces to width.
func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		writeRepeat(w, ' ', width-len(s))
		// Converting s to a []byte would allocate.
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		writeRepeat(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtInt writes v in the requested base. Base 10 output is space-padded and
// base 8/16 output is zero-padded to width.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		uval uint64
		neg  bool
	)

	switch t := v.(type) {
	case uint8:
		uval = uint64(t)
	case uint16:
		uval = uint64(t)
	case uint32:
		uval = uint64(t)
	case uint64:
		uval = t
	case uint:
		uval = uint64(t)
	case uintptr:
		uval = uint64(t)
	case int8:
		uval, neg = abs(int64(t))
	case int16:
		uval, neg = abs(int64(t))
	case int32:
		uval, neg = abs(int64(t))
	case int64:
		uval, neg = abs(t)
	case int:
		uval, neg = abs(int64(t))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if width > numBufSize {
		width = numBufSize
	}

	// Digits are generated right to left.
	pos := numBufSize
	for {
		pos--
		digit := byte(uval % base)
		if digit < 10 {
			numBuf[pos] = '0' + digit
		} else {
			numBuf[pos] = 'a' + digit - 10
		}

		if uval /= base; uval == 0 {
			break
		}
	}

	padCh := byte('0')
	if base == 10 {
		padCh = ' '
	}

	if neg && padCh == '0' {
		// Zero padding goes between the sign and the digits.
		for numBufSize-pos < width-1 && pos > 1 {
			pos--
			numBuf[pos] = padCh
		}
		pos--
		numBuf[pos] = '-'
	} else {
		if neg {
			pos--
			numBuf[pos] = '-'
		}
		for numBufSize-pos < width && pos > 0 {
			pos--
			numBuf[pos] = padCh
		}
	}

	doWrite(w, numBuf[pos:])
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func writeByte(w io.Writer, ch byte) {
	oneByte[0] = ch
	doWrite(w, oneByte[:])
}

func writeRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// doWrite hides p from escape analysis. Without it the compiler cannot prove
// that p does not escape through the (unknown) io.Writer and every Printf
// call would allocate its argument slice on the heap.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
		return
	}

	earlyPrintBuffer.Write(p)
}

// noEscape hides a pointer from escape analysis. Copied from runtime/stubs.go.
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
