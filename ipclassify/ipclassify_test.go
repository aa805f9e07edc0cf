package ipclassify

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_PublicV4(t *testing.T) {
	assert.Equal(t, Public, ParseAndClassify("8.8.8.8", Options{}))
}

func TestClassify_PrivateV4RFC1918(t *testing.T) {
	for _, ip := range []string{"10.0.0.1", "172.16.0.1", "192.168.1.1"} {
		assert.Equal(t, Private, ParseAndClassify(ip, Options{}), ip)
	}
}

func TestClassify_Loopback(t *testing.T) {
	assert.Equal(t, Private, ParseAndClassify("127.0.0.1", Options{}))
	assert.Equal(t, Private, ParseAndClassify("::1", Options{}))
}

func TestClassify_CGNAT_DefaultPrivate(t *testing.T) {
	assert.Equal(t, Private, ParseAndClassify("100.64.0.1", Options{}))
}

func TestClassify_CGNAT_AllowedIsPublic(t *testing.T) {
	assert.Equal(t, Public, ParseAndClassify("100.64.0.1", Options{AllowCGNAT: true}))
}

func TestClassify_IPv4MappedIPv6Unwrapped(t *testing.T) {
	ip := net.ParseIP("::ffff:127.0.0.1")
	assert.Equal(t, Private, Classify(ip, Options{}))
}

func TestClassify_ULA(t *testing.T) {
	assert.Equal(t, Private, ParseAndClassify("fc00::1", Options{}))
}

func TestClassify_LinkLocal(t *testing.T) {
	assert.Equal(t, Private, ParseAndClassify("169.254.1.1", Options{}))
	assert.Equal(t, Private, ParseAndClassify("fe80::1", Options{}))
}

func TestClassify_InvalidInputIsPrivate(t *testing.T) {
	assert.Equal(t, Private, ParseAndClassify("not-an-ip", Options{}))
}

func TestClassify_PublicV6(t *testing.T) {
	assert.Equal(t, Public, ParseAndClassify("2001:4860:4860::8888", Options{}))
}
