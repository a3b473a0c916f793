package kfmt

import "io"

// PrefixWriter is an io.Writer that injects Prefix at the start of every line
// written to Sink. Drivers use it to tag their log lines with the name of the
// subsystem, e.g. "[pci] ".
type PrefixWriter struct {
	// A writer where all writes get sent to. A nil Sink follows the sink
	// installed via SetOutputSink.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// Write writes p to the sink and returns the number of bytes from p that were
// written. Injected prefixes do not count towards the returned value.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			doWrite(w.sink(), w.Prefix)
			w.midLine = true
		}

		lineLen := len(p)
		for i, b := range p {
			if b == '\n' {
				lineLen = i + 1
				w.midLine = false
				break
			}
		}

		n, err := w.sinkWrite(p[:lineLen])
		written += n
		if err != nil {
			return written, err
		}

		p = p[lineLen:]
	}

	return written, nil
}

func (w *PrefixWriter) sink() io.Writer {
	if w.Sink != nil {
		return w.Sink
	}
	return outputSink
}

func (w *PrefixWriter) sinkWrite(p []byte) (int, error) {
	if sink := w.sink(); sink != nil {
		return sink.Write(p)
	}
	return earlyPrintBuffer.Write(p)
}
