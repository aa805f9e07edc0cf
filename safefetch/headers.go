package safefetch

import (
	"net/http"
	"strings"
)

// hopByHopHeaders are stripped before every outbound send regardless of
// what the caller or a proxy in front of us set.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// stripHopByHop removes the fixed hop-by-hop set plus any header named
// in a Connection header value, returning a fresh header map so the
// caller's original headers are never mutated.
func stripHopByHop(in http.Header) http.Header {
	out := make(http.Header, len(in))
	extra := map[string]bool{}
	for _, v := range in.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			extra[http.CanonicalHeaderKey(strings.TrimSpace(name))] = true
		}
	}
	for k, vs := range in {
		ck := http.CanonicalHeaderKey(k)
		if hopByHopHeaders[ck] || extra[ck] {
			continue
		}
		out[ck] = append([]string(nil), vs...)
	}
	return out
}

// applyAcceptEncoding honors a caller-set Accept-Encoding verbatim;
// otherwise, unless allowCompression is set, it injects "identity" so
// the transport never performs
// transparent decompression, which would make maxResponseBytes
// unenforceable against the true decoded size.
func applyAcceptEncoding(h http.Header, allowCompression bool) {
	if h.Get("Accept-Encoding") != "" {
		return
	}
	if !allowCompression {
		h.Set("Accept-Encoding", "identity")
	}
}
