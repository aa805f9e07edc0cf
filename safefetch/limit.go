package safefetch

import (
	"io"

	"github.com/peacprotocol/peac-go/cryptoerr"
)

// limitedReadCloser enforces the decoded response-size budget on a
// streaming read, for callers using FetchRaw instead of Fetch. Read
// returns a cryptoerr once more than limit bytes have been observed.
type limitedReadCloser struct {
	r     io.ReadCloser
	limit int64
	read  int64
}

func (l *limitedReadCloser) Read(p []byte) (int, error) {
	if l.read > l.limit {
		return 0, cryptoerr.New(cryptoerr.NetResponseTooLarge, "decoded response exceeds the configured budget")
	}
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.limit {
		return n, cryptoerr.New(cryptoerr.NetResponseTooLarge, "decoded response exceeds the configured budget")
	}
	return n, err
}

func (l *limitedReadCloser) Close() error {
	return l.r.Close()
}
