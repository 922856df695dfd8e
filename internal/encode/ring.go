package encode

// ringWriter is an io.Writer that retains only the last max bytes written.
// Long encodes can emit megabytes of progress lines on stderr; only the tail
// matters for diagnostics, so oldest bytes are discarded first.
type ringWriter struct {
	buf  []byte
	max  int
	pos  int
	full bool
}

// newRingWriter creates a ringWriter holding at most max bytes.
func newRingWriter(max int) *ringWriter {
	if max <= 0 {
		max = 8 * 1024
	}
	return &ringWriter{buf: make([]byte, max), max: max}
}

// Write implements io.Writer and never fails.
func (r *ringWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n >= r.max {
		// Only the tail of this single write survives.
		copy(r.buf, p[n-r.max:])
		r.pos = 0
		r.full = true
		return n, nil
	}
	for len(p) > 0 {
		c := copy(r.buf[r.pos:], p)
		r.pos += c
		if r.pos == r.max {
			r.pos = 0
			r.full = true
		}
		p = p[c:]
	}
	return n, nil
}

// String returns the retained tail in write order.
func (r *ringWriter) String() string {
	if !r.full {
		return string(r.buf[:r.pos])
	}
	out := make([]byte, 0, r.max)
	out = append(out, r.buf[r.pos:]...)
	out = append(out, r.buf[:r.pos]...)
	return string(out)
}
