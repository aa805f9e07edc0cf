package safefetch

import (
	"context"
	"net/http"
	"net/url"

	"github.com/peacprotocol/peac-go/cryptoerr"
	"github.com/peacprotocol/peac-go/netguard"
)

// FetchRaw performs the same validated, redirect-following fetch as
// Fetch but returns the final hop's response body unread. The caller
// must call the returned close function exactly once; failing to do so
// leaks the underlying connection (a resource leak, not a safety hole
// — the transport still reaps idle connections eventually).
func (e *Engine) FetchRaw(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, func() error, error) {
	if header == nil {
		header = http.Header{}
	}
	if !e.opts.AllowedMethods[method] {
		return nil, nil, cryptoerr.New(cryptoerr.NetMethodNotAllowed, "method is not in the allowed set")
	}

	current := rawURL
	var origin *url.URL
	redirects := 0

	for {
		u, guardErr := checkURLFor(e, current)
		if guardErr != nil {
			return nil, nil, guardErr
		}
		if origin == nil {
			origin = u
		} else if rerr := checkRedirect(origin, u, e.opts.RedirectPolicy, e.opts.RedirectAllowlist); rerr != nil {
			e.opts.emit("policy_block", current, map[string]any{"code": string(codeOf(rerr))})
			return nil, nil, rerr
		}

		resp, respURL, _, _, err := e.doOneHop(ctx, method, u, header)
		if err != nil {
			return nil, nil, err
		}

		if loc := redirectLocation(resp); loc != "" {
			resp.Body.Close()
			redirects++
			if redirects > e.opts.MaxRedirects {
				return nil, nil, cryptoerr.New(cryptoerr.NetSSRFTooManyRedirects, "exceeded maximum redirect count")
			}
			next, perr := respURL.Parse(loc)
			if perr != nil {
				return nil, nil, cryptoerr.New(cryptoerr.NetParseError, "redirect location does not parse")
			}
			current = next.String()
			origin = u
			continue
		}

		resp.Body = &limitedReadCloser{r: resp.Body, limit: e.opts.effectiveMaxResponseBytes()}
		return resp, resp.Body.Close, nil
	}
}

func checkURLFor(e *Engine, rawURL string) (*url.URL, error) {
	u, err := netguard.CheckURL(rawURL, e.opts.Guard)
	if err != nil {
		e.opts.emit("policy_block", rawURL, map[string]any{"code": string(codeOf(err))})
		return nil, err
	}
	return u, nil
}
