// Package netguard implements the string-level SSRF URL guard: the set of
// checks that can be made against a URL before any DNS resolution happens.
package netguard

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/peacprotocol/peac-go/cryptoerr"
)

// Options configures the URL guard. Each Allow* field gates a policy that
// is off by default. AllowPrivateCIDRs and AllowDangerousPorts take effect
// only together with the matching Ack string; AllowIPLiterals and
// AllowCredentials take effect on their own.
type Options struct {
	// RequireHTTPS rejects the http scheme when true (the default).
	RequireHTTPS bool

	// AllowIPLiterals permits a hostname that is itself an IP literal.
	AllowIPLiterals bool

	// AllowCredentials permits userinfo (user:pass@) in the URL.
	AllowCredentials bool

	// AllowPrivateCIDRs, together with Ack == AckAllowPrivateCIDRs,
	// permits IP literals inside AllowedCIDRs even if they are private.
	AllowPrivateCIDRs bool
	AllowedCIDRs      []*net.IPNet

	// AllowPorts lists additional ports beyond DefaultAllowedPorts.
	AllowPorts map[int]bool

	// AllowDangerousPorts, together with Ack == AckAllowDangerousPort,
	// permits ports in DangerousPorts.
	AllowDangerousPorts bool

	// Ack is the caller-supplied acknowledgment string. Exactly one
	// acknowledgment is checked per call, matched against whichever
	// dangerous policy is actually being exercised.
	Ack string
}

// DefaultOptions returns the conservative default guard policy.
func DefaultOptions() Options {
	return Options{
		RequireHTTPS: true,
	}
}

var localhostSuffixes = []string{"localhost"}

// CheckURL runs the admissibility checks in spec order, returning the
// first failure. A nil return means the URL string itself is admissible;
// callers must still run DNS pinning and IP classification before
// connecting.
func CheckURL(rawURL string, opts Options) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "url does not parse")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "scheme must be http or https")
	}
	if u.Scheme == "http" && opts.RequireHTTPS {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "https required")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "empty hostname")
	}

	if strings.Contains(hostname, "%") {
		return nil, cryptoerr.New(cryptoerr.NetSSRFIPv6ZoneID, "hostname carries an IPv6 zone ID")
	}

	if isLocalhost(hostname) {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "localhost is not a permitted target")
	}

	if ip := net.ParseIP(stripBrackets(hostname)); ip != nil {
		if !opts.AllowIPLiterals {
			return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "IP literals are not permitted")
		}
		if ip.IsLoopback() {
			return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "loopback literal is not a permitted target")
		}
		if allowed, inCIDR := checkAllowedCIDR(ip, opts); inCIDR && !allowed {
			return nil, cryptoerr.New(cryptoerr.NetSSRFAllowCIDRsAckRequired, "allow-CIDR literal requires acknowledgment")
		}
	}

	if u.User != nil && !opts.AllowCredentials {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "URL userinfo is not permitted")
	}

	port, err := effectivePort(u)
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.NetSSRFURLRejected, "invalid port")
	}
	if err := checkPort(port, opts); err != nil {
		return nil, err
	}

	return u, nil
}

func isLocalhost(hostname string) bool {
	h := strings.ToLower(hostname)
	for _, s := range localhostSuffixes {
		if h == s || strings.HasSuffix(h, "."+s) {
			return true
		}
	}
	return false
}

func stripBrackets(hostname string) string {
	return strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")
}

func checkAllowedCIDR(ip net.IP, opts Options) (allowed bool, inCIDR bool) {
	for _, n := range opts.AllowedCIDRs {
		if n.Contains(ip) {
			inCIDR = true
			break
		}
	}
	if !inCIDR {
		return false, false
	}
	allowed = opts.AllowPrivateCIDRs && opts.Ack == AckAllowPrivateCIDRs
	return allowed, true
}

func effectivePort(u *url.URL) (int, error) {
	portStr := u.Port()
	if portStr == "" {
		if u.Scheme == "https" {
			return 443, nil
		}
		return 80, nil
	}
	return strconv.Atoi(portStr)
}

func checkPort(port int, opts Options) error {
	allowed := DefaultAllowedPorts[port] || opts.AllowPorts[port]
	if !allowed {
		return cryptoerr.New(cryptoerr.NetSSRFURLRejected, "port is not permitted")
	}
	if DangerousPorts[port] {
		if !opts.AllowDangerousPorts {
			return cryptoerr.New(cryptoerr.NetSSRFDangerousPort, "port is reserved for a commonly internal service")
		}
		if opts.Ack != AckAllowDangerousPort {
			return cryptoerr.New(cryptoerr.NetSSRFDangerousPortAckMissing, "dangerous port requires acknowledgment string")
		}
	}
	return nil
}
