// Package dnspin resolves a hostname exactly once per connection attempt
// and pins the engine to the resolved addresses, so that a second DNS
// lookup later in the same request (the classic TOCTOU opening for
// DNS-rebinding SSRF) never happens.
package dnspin

import (
	"context"
	"net"

	"github.com/peacprotocol/peac-go/cryptoerr"
	"github.com/peacprotocol/peac-go/ipclassify"
	"github.com/peacprotocol/peac-go/netguard"
)

// Resolution holds the pinnable addresses a lookup returned, split by
// family, plus any answers excluded from pinning and why.
type Resolution struct {
	IPv4    []net.IP
	IPv6    []net.IP
	Blocked []BlockedAddress
}

// BlockedAddress records a DNS answer that was excluded from pinning.
type BlockedAddress struct {
	IP     net.IP
	Reason string
}

// All returns every resolved address, IPv6 first (RFC 8305 preference).
func (r Resolution) All() []net.IP {
	out := make([]net.IP, 0, len(r.IPv4)+len(r.IPv6))
	out = append(out, r.IPv6...)
	out = append(out, r.IPv4...)
	return out
}

// Resolver performs the single-resolution-per-hop DNS lookup. It is an
// interface so tests can substitute a fixed address table instead of
// talking to a real resolver.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Options configures resolution and the mixed-family policy.
type Options struct {
	Resolver Resolver

	// AllowCGNAT permits carrier-grade NAT addresses to classify Public.
	AllowCGNAT bool

	// AllowMixedDNS, together with Ack == AckAllowMixedDNS (from
	// netguard), permits a hostname that resolves to both public and
	// private addresses. Without it, any private address in the
	// answer set blocks the whole resolution.
	AllowMixedDNS bool
	Ack           string
}

// DefaultOptions returns a resolver backed by net.DefaultResolver.
func DefaultOptions() Options {
	return Options{Resolver: net.DefaultResolver}
}

// Pin resolves host once and applies the mixed-family / private-address
// policy, returning the resolved addresses in RFC 8305 preference order
// or a cryptoerr.Error describing why resolution was rejected.
func Pin(ctx context.Context, host string, opts Options) (Resolution, error) {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		if ctx.Err() != nil {
			return Resolution{}, cryptoerr.New(cryptoerr.NetDNSTimeout, "dns lookup timed out")
		}
		return Resolution{}, cryptoerr.New(cryptoerr.NetDNSResolutionFailed, "dns lookup failed")
	}
	if len(addrs) == 0 {
		return Resolution{}, cryptoerr.New(cryptoerr.NetDNSResolutionFailed, "dns lookup returned no addresses")
	}

	classOpts := ipclassify.Options{AllowCGNAT: opts.AllowCGNAT}
	var res Resolution
	sawPublic, sawPrivate := false, false

	for _, a := range addrs {
		ip := a.IP
		if ipclassify.Classify(ip, classOpts) == ipclassify.Public {
			sawPublic = true
			if ip.To4() != nil {
				res.IPv4 = append(res.IPv4, ip)
			} else {
				res.IPv6 = append(res.IPv6, ip)
			}
		} else {
			sawPrivate = true
			res.Blocked = append(res.Blocked, BlockedAddress{IP: ip, Reason: "private address"})
		}
	}

	// res is returned alongside every error below (not Resolution{}) so
	// that callers building audit evidence can still see what the
	// resolution found, even though res.All() must never be pinned after
	// a non-nil error.
	switch {
	case sawPrivate && !sawPublic:
		return res, cryptoerr.New(cryptoerr.NetSSRFDNSResolvedPrivate, "hostname resolved only to private addresses")
	case sawPrivate && sawPublic:
		if !opts.AllowMixedDNS {
			return res, cryptoerr.New(cryptoerr.NetSSRFMixedDNSBlocked, "hostname resolved to both public and private addresses")
		}
		if opts.Ack != netguard.AckAllowMixedDNS {
			return res, cryptoerr.New(cryptoerr.NetSSRFMixedDNSAckMissing, "mixed-family dns resolution requires acknowledgment")
		}
	}

	// Only public addresses are ever handed to the engine for pinning,
	// even when a mixed-family resolution was explicitly allowed: the ack
	// permits *resolving* a hostname that also has private answers, not
	// *connecting* to one of them. res.Blocked above already records the
	// rejected private answers for evidence.
	return res, nil
}
