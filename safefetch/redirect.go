package safefetch

import (
	"net/url"

	"golang.org/x/net/publicsuffix"

	"github.com/peacprotocol/peac-go/cryptoerr"
)

// RedirectPolicy controls which redirect targets the engine will follow.
type RedirectPolicy string

const (
	RedirectNone                  RedirectPolicy = "none"
	RedirectSameOrigin            RedirectPolicy = "same-origin"
	RedirectSameRegistrableDomain RedirectPolicy = "same-registrable-domain"
	RedirectAllowlist             RedirectPolicy = "allowlist"
)

// checkRedirect decides whether target is a permitted redirect from
// origin under policy. A protocol downgrade (https -> http) is never
// permitted, regardless of policy.
func checkRedirect(origin, target *url.URL, policy RedirectPolicy, allowlist map[string]bool) error {
	if origin.Scheme == "https" && target.Scheme != "https" {
		return cryptoerr.New(cryptoerr.NetSSRFRedirectBlocked, "redirect would downgrade from https to http")
	}

	switch policy {
	case RedirectNone:
		return cryptoerr.New(cryptoerr.NetSSRFRedirectBlocked, "redirects are not permitted")

	case RedirectSameOrigin:
		if origin.Scheme != target.Scheme || origin.Host != target.Host {
			return cryptoerr.New(cryptoerr.NetSSRFRedirectBlocked, "redirect target is not the same origin")
		}
		return nil

	case RedirectSameRegistrableDomain:
		od, oerr := registrableDomain(origin)
		td, terr := registrableDomain(target)
		if oerr != nil || terr != nil || od != td {
			return cryptoerr.New(cryptoerr.NetSSRFRedirectBlocked, "redirect target is not the same registrable domain")
		}
		return nil

	case RedirectAllowlist:
		td, err := registrableDomain(target)
		if err != nil || !allowlist[td] {
			return cryptoerr.New(cryptoerr.NetSSRFRedirectBlocked, "redirect target is not in the allowlist")
		}
		return nil

	default:
		return cryptoerr.New(cryptoerr.NetSSRFRedirectBlocked, "unknown redirect policy")
	}
}

func registrableDomain(u *url.URL) (string, error) {
	host := u.Hostname()
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", err
	}
	return etld1, nil
}
