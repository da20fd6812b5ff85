package pcsc

import "bytes"

// ReaderNames iterates over the reader names returned by
// Context.ListReaders. The underlying buffer holds NUL-separated names
// with a final empty name marking the end; decoding is done one name
// at a time as Next is called.
type ReaderNames struct {
	buf []byte
}

// Next returns the next reader name, or ok=false when the names are
// exhausted. Exhaustion is persistent.
func (r *ReaderNames) Next() (name string, ok bool) {
	i := bytes.IndexByte(r.buf, 0)
	if i <= 0 {
		// Empty name or missing terminator; either way we are done.
		r.buf = nil
		return "", false
	}
	name = string(r.buf[:i])
	r.buf = r.buf[i+1:]
	return name, true
}

// Clone returns an independent iterator positioned at the same point,
// sharing the underlying buffer.
func (r *ReaderNames) Clone() *ReaderNames {
	return &ReaderNames{buf: r.buf}
}

// Collect drains the iterator into a slice.
func (r *ReaderNames) Collect() []string {
	var names []string
	for {
		name, ok := r.Next()
		if !ok {
			return names
		}
		names = append(names, name)
	}
}
