package httpclient

import "io"

// progressReader reports how much of the request body the transport has consumed
type progressReader struct {
	reader io.Reader
	sent   int64
	total  int64
	fn     ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.sent += int64(n)
		r.fn(r.sent, r.total)
	}
	return n, err
}
