package dataset

import "io"

// FailWritesAfterForTest makes Write fail once n bytes have been written.
func FailWritesAfterForTest(n int) (restore func()) {
	prev := wrapWriter
	wrapWriter = func(encode func(io.Writer) error) func(io.Writer) error {
		return func(w io.Writer) error {
			return encode(&failingWriter{w: w, left: n})
		}
	}
	return func() { wrapWriter = prev }
}

type failingWriter struct {
	w    io.Writer
	left int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > f.left {
		n, _ := f.w.Write(p[:f.left])
		f.left = 0
		return n, io.ErrShortWrite
	}
	f.left -= len(p)
	return f.w.Write(p)
}
