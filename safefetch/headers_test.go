package safefetch

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHopByHop_RemovesFixedSet(t *testing.T) {
	in := http.Header{}
	in.Set("Connection", "close")
	in.Set("Keep-Alive", "timeout=5")
	in.Set("X-Custom", "keep-me")

	out := stripHopByHop(in)
	assert.Empty(t, out.Get("Connection"))
	assert.Empty(t, out.Get("Keep-Alive"))
	assert.Equal(t, "keep-me", out.Get("X-Custom"))
}

func TestStripHopByHop_RemovesHeadersNamedInConnection(t *testing.T) {
	in := http.Header{}
	in.Set("Connection", "X-Secret")
	in.Set("X-Secret", "value")
	in.Set("X-Public", "value")

	out := stripHopByHop(in)
	assert.Empty(t, out.Get("X-Secret"))
	assert.Equal(t, "value", out.Get("X-Public"))
}

func TestStripHopByHop_DoesNotMutateInput(t *testing.T) {
	in := http.Header{}
	in.Set("X-Custom", "value")
	_ = stripHopByHop(in)
	assert.Equal(t, "value", in.Get("X-Custom"))
}

func TestApplyAcceptEncoding_InjectsIdentityByDefault(t *testing.T) {
	h := http.Header{}
	applyAcceptEncoding(h, false)
	assert.Equal(t, "identity", h.Get("Accept-Encoding"))
}

func TestApplyAcceptEncoding_HonorsExplicitValue(t *testing.T) {
	h := http.Header{}
	h.Set("Accept-Encoding", "gzip")
	applyAcceptEncoding(h, false)
	assert.Equal(t, "gzip", h.Get("Accept-Encoding"))
}

func TestApplyAcceptEncoding_SkipsInjectionWhenCompressionAllowed(t *testing.T) {
	h := http.Header{}
	applyAcceptEncoding(h, true)
	assert.Empty(t, h.Get("Accept-Encoding"))
}
