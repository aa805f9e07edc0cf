// Package safefetch implements the SSRF-hardened outbound fetch engine:
// URL guard, DNS pinning, IP classification, pinned-IP connect, size
// and timeout budgets, and redirect re-validation, all wired through a
// single state machine per request.
package safefetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/peacprotocol/peac-go/cryptoerr"
	"github.com/peacprotocol/peac-go/dnspin"
	"github.com/peacprotocol/peac-go/evidence"
	"github.com/peacprotocol/peac-go/netguard"
)

// Result is the outcome of a fetch, whether it succeeded or was blocked.
// Header/Body/FinalURL are only meaningful when the policy decision
// recorded in Evidence is "allow". Evidence is always populated, since a
// blocked request still needs an auditable record of why.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FinalURL   string
	Redirects  int
	Evidence   *evidence.Evidence
}

// Engine runs Options against individual requests. An Engine holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	opts Options
}

// New creates an Engine bound to opts.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Fetch performs method against rawURL, following redirects according
// to Options.RedirectPolicy, and returns the final response body up to
// Options.MaxResponseBytes. Every terminal outcome, allowed or blocked,
// finalizes an Evidence artifact on the returned Result.
func (e *Engine) Fetch(ctx context.Context, method, rawURL string, header http.Header) (*Result, error) {
	if header == nil {
		header = http.Header{}
	}
	requestTimestamp := e.opts.now().Unix()

	if !e.opts.AllowedMethods[method] {
		err := cryptoerr.New(cryptoerr.NetMethodNotAllowed, "method is not in the allowed set")
		host, literal := bestEffortHost(rawURL)
		return e.blockResult(rawURL, method, 0, requestTimestamp, host, literal, nil, nil, err), err
	}

	current := rawURL
	var origin *url.URL
	redirects := 0

	for {
		host, literal := bestEffortHost(current)

		u, err := netguard.CheckURL(current, e.opts.Guard)
		if err != nil {
			e.opts.emit("policy_block", current, map[string]any{"code": string(codeOf(err))})
			return e.blockResult(current, method, redirects, requestTimestamp, host, literal, nil, nil, err), err
		}
		host, literal = u.Hostname(), isIPLiteral(u.Hostname())

		if origin == nil {
			origin = u
		} else if rerr := checkRedirect(origin, u, e.opts.RedirectPolicy, e.opts.RedirectAllowlist); rerr != nil {
			e.opts.emit("policy_block", current, map[string]any{"code": string(codeOf(rerr))})
			return e.blockResult(current, method, redirects, requestTimestamp, host, literal, nil, nil, rerr), rerr
		}

		resp, respURL, dnsAnswers, selectedIP, rerr := e.doOneHop(ctx, method, u, header)
		if rerr != nil {
			return e.blockResult(current, method, redirects, requestTimestamp, host, literal, dnsAnswers, selectedIP, rerr), rerr
		}

		if loc := redirectLocation(resp); loc != "" {
			resp.Body.Close()
			redirects++
			if redirects > e.opts.MaxRedirects {
				e.opts.emit("policy_block", current, map[string]any{"code": string(cryptoerr.NetSSRFTooManyRedirects)})
				err := cryptoerr.New(cryptoerr.NetSSRFTooManyRedirects, "exceeded maximum redirect count")
				return e.blockResult(current, method, redirects, requestTimestamp, host, literal, dnsAnswers, selectedIP, err), err
			}
			next, perr := respURL.Parse(loc)
			if perr != nil {
				err := cryptoerr.New(cryptoerr.NetParseError, "redirect location does not parse")
				return e.blockResult(current, method, redirects, requestTimestamp, host, literal, dnsAnswers, selectedIP, err), err
			}
			e.opts.emit("redirect", current, map[string]any{"to": next.String()})
			current = next.String()
			origin = u
			continue
		}

		body, berr := e.readBody(resp)
		if berr != nil {
			resp.Body.Close()
			return e.blockResult(current, method, redirects, requestTimestamp, host, literal, dnsAnswers, selectedIP, berr), berr
		}
		resp.Body.Close()

		core := evidence.Core{
			RequestURL:       current,
			Method:           method,
			PolicyDecision:   "allow",
			StatusCode:       resp.StatusCode,
			CanonicalHost:    host,
			IsIPLiteral:      literal,
			RequestTimestamp: requestTimestamp,
			Redirects:        redirects,
			MaxResponseBytes: e.opts.effectiveMaxResponseBytes(),
		}
		ev, everr := e.buildEvidence(core, dnsAnswers, selectedIP)
		if everr != nil {
			return nil, everr
		}

		return &Result{
			StatusCode: resp.StatusCode,
			Header:     stripHopByHop(resp.Header),
			Body:       body,
			FinalURL:   respURL.String(),
			Redirects:  redirects,
			Evidence:   ev,
		}, nil
	}
}

// blockResult builds the Result carrying a "block" Evidence artifact for a
// terminal error. err remains the unwrapped cryptoerr returned to the
// caller: evidence construction never replaces the fetch outcome. If
// evidence itself fails to build (e.g. a misconfigured tenant key), the
// Result still carries nil Evidence rather than masking the real error.
func (e *Engine) blockResult(rawURL, method string, redirects int, requestTimestamp int64, host string, literal bool, dnsAnswers []evidence.DNSAnswer, selectedIP net.IP, err error) *Result {
	core := evidence.Core{
		RequestURL:       rawURL,
		Method:           method,
		PolicyDecision:   "block",
		DecisionCode:     string(codeOf(err)),
		CanonicalHost:    host,
		IsIPLiteral:      literal,
		RequestTimestamp: requestTimestamp,
		Redirects:        redirects,
		MaxResponseBytes: e.opts.effectiveMaxResponseBytes(),
	}
	ev, _ := e.buildEvidence(core, dnsAnswers, selectedIP)
	return &Result{Evidence: ev}
}

func (e *Engine) buildEvidence(core evidence.Core, dnsAnswers []evidence.DNSAnswer, selectedIP net.IP) (*evidence.Evidence, error) {
	ctx := evidence.BuildContext{
		Level:          e.opts.evidenceLevel(),
		RedactionKey:   e.opts.RedactionKey,
		RedactionKeyID: e.opts.RedactionKeyID,
		DNSAnswers:     dnsAnswers,
		SelectedIP:     selectedIP,
	}
	if e.opts.Audit != nil {
		ctx.Pending = e.opts.Audit.Pending()
		ctx.Dropped = e.opts.Audit.Dropped()
	}
	return evidence.FinalizeEvidence(core, ctx)
}

func codeOf(err error) cryptoerr.Code {
	if ce, ok := err.(*cryptoerr.Error); ok {
		return ce.Code
	}
	return ""
}

func redirectLocation(resp *http.Response) string {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return resp.Header.Get("Location")
	default:
		return ""
	}
}

// bestEffortHost extracts a hostname for evidence purposes from a URL that
// has not yet passed (or failed) the guard, so even a rejected URL still
// produces evidence naming the host it targeted.
func bestEffortHost(rawURL string) (host string, literal bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host = u.Hostname()
	return host, isIPLiteral(host)
}

func isIPLiteral(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// doOneHop performs DNS pinning and a single pinned-IP request for u,
// without following any redirect the response carries. dnsAnswers and
// selectedIP are populated on a best-effort basis even when err != nil,
// so the caller can still attach DNS detail to block evidence.
func (e *Engine) doOneHop(ctx context.Context, method string, u *url.URL, header http.Header) (resp *http.Response, respURL *url.URL, dnsAnswers []evidence.DNSAnswer, selectedIP net.IP, err error) {
	e.opts.emit("dns_start", u.String(), nil)

	dnsCtx, cancel := context.WithTimeout(ctx, e.opts.stageTimeout(e.opts.DNSTimeout))
	defer cancel()

	res, derr := dnspin.Pin(dnsCtx, u.Hostname(), e.opts.DNS)
	dnsAnswers = dnsAnswersFromResolution(res)
	if derr != nil {
		e.opts.emit("policy_block", u.String(), map[string]any{"code": string(codeOf(derr))})
		return nil, nil, dnsAnswers, nil, derr
	}
	all := res.All()
	if len(all) == 0 {
		return nil, nil, dnsAnswers, nil, cryptoerr.New(cryptoerr.NetSSRFAllIPsBlocked, "no admissible address for this hop")
	}
	pinned := all[0]
	selectedIP = pinned
	e.opts.emit("dns_result", u.String(), map[string]any{"family": family(pinned)})

	reqHeader := stripHopByHop(header.Clone())
	applyAcceptEncoding(reqHeader, e.opts.AllowCompression)

	req, rerr := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if rerr != nil {
		return nil, nil, dnsAnswers, selectedIP, cryptoerr.New(cryptoerr.NetParseError, "could not build request")
	}
	req.Header = reqHeader

	transport := e.opts.Transport
	if transport == nil {
		transport = &http.Transport{
			DialContext: (&pinnedDialer{
				ip:   pinned,
				base: net.Dialer{Timeout: e.opts.stageTimeout(e.opts.ConnectTimeout)},
			}).DialContext,
			ResponseHeaderTimeout: e.opts.stageTimeout(e.opts.HeadersTimeout),
		}
	}
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		Transport:     transport,
		Timeout:       e.opts.stageTimeout(e.opts.TotalTimeout),
	}

	e.opts.emit("connect_start", u.String(), map[string]any{"ip": pinned.String()})

	hresp, herr := client.Do(req)
	if herr != nil {
		if ctx.Err() != nil {
			return nil, nil, dnsAnswers, selectedIP, cryptoerr.New(cryptoerr.NetCancelled, "request was cancelled")
		}
		return nil, nil, dnsAnswers, selectedIP, cryptoerr.New(cryptoerr.NetNetworkError, "request failed")
	}

	if cl := hresp.Header.Get("Content-Length"); cl != "" {
		if n, perr := strconv.ParseInt(cl, 10, 64); perr == nil && n > e.opts.effectiveMaxResponseBytes() {
			hresp.Body.Close()
			return nil, nil, dnsAnswers, selectedIP, cryptoerr.New(cryptoerr.NetResponseTooLarge, "content-length exceeds the configured budget")
		}
	}
	e.opts.emit("response_headers", u.String(), map[string]any{"status": hresp.StatusCode})

	return hresp, u, dnsAnswers, selectedIP, nil
}

// dnsAnswersFromResolution flattens a dnspin.Resolution into the builder's
// DNSAnswer view: every pinnable address plus every address excluded from
// pinning, each carrying its blocked reason if any.
func dnsAnswersFromResolution(res dnspin.Resolution) []evidence.DNSAnswer {
	out := make([]evidence.DNSAnswer, 0, len(res.IPv4)+len(res.IPv6)+len(res.Blocked))
	for _, ip := range res.All() {
		out = append(out, evidence.DNSAnswer{IP: ip})
	}
	for _, b := range res.Blocked {
		out = append(out, evidence.DNSAnswer{IP: b.IP, BlockedReason: b.Reason})
	}
	return out
}

func (o Options) effectiveMaxResponseBytes() int64 {
	if o.MaxResponseBytes > 0 {
		return o.MaxResponseBytes
	}
	return DefaultMaxResponseBytes
}

func (e *Engine) readBody(resp *http.Response) ([]byte, error) {
	limit := e.opts.effectiveMaxResponseBytes()
	lr := io.LimitReader(resp.Body, limit+1)
	body, err := io.ReadAll(lr)
	if err != nil {
		return nil, cryptoerr.New(cryptoerr.NetNetworkError, "failed reading response body")
	}
	if int64(len(body)) > limit {
		return nil, cryptoerr.New(cryptoerr.NetResponseTooLarge, "decoded response exceeds the configured budget")
	}
	return body, nil
}

func family(ip net.IP) string {
	if ip.To4() != nil {
		return "v4"
	}
	return "v6"
}
