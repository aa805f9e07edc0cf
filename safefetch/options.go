package safefetch

import (
	"net/http"
	"time"

	"github.com/peacprotocol/peac-go/audit"
	"github.com/peacprotocol/peac-go/dnspin"
	"github.com/peacprotocol/peac-go/evidence"
	"github.com/peacprotocol/peac-go/netguard"
)

// Engine-wide constants from the external interface section: callers
// get these defaults unless they override them in Options.
const (
	DefaultTimeoutMs        = 30000
	DefaultMaxRedirects     = 5
	DefaultMaxResponseBytes = 2 * 1024 * 1024
	MaxJWKSResponseBytes    = 512 * 1024
	JWKSMaxRedirects        = 0
)

// DefaultAllowedMethods is the conservative method whitelist: fetching
// is a read operation, so only GET and HEAD are permitted by default.
func DefaultAllowedMethods() map[string]bool {
	return map[string]bool{"GET": true, "HEAD": true}
}

// Options configures one Engine. The zero value is not directly usable;
// use DefaultOptions and override individual fields.
type Options struct {
	AllowedMethods   map[string]bool
	AllowCompression bool
	MaxResponseBytes int64

	RedirectPolicy    RedirectPolicy
	RedirectAllowlist map[string]bool
	MaxRedirects      int

	// Staged timeouts. Zero means "use TotalTimeout for this stage".
	// DNSTimeout, ConnectTimeout and HeadersTimeout bound their own stage
	// of each hop (the latter two only with the built-in pinned dialer).
	// BodyTimeout is not applied: the body read is bounded only by
	// TotalTimeout, which limits each hop's whole HTTP exchange.
	DNSTimeout     time.Duration
	ConnectTimeout time.Duration
	HeadersTimeout time.Duration
	BodyTimeout    time.Duration
	TotalTimeout   time.Duration

	Guard netguard.Options
	DNS   dnspin.Options

	// EvidenceLevel controls how much network detail the finalized
	// Evidence artifact carries for every hop. Defaults to "public".
	EvidenceLevel evidence.RedactionLevel

	// RedactionKey and RedactionKeyID are required when EvidenceLevel is
	// "tenant": the key must be at least 32 bytes, and the ID identifies
	// which key was used without revealing it.
	RedactionKey   []byte
	RedactionKeyID string

	// Audit receives state-machine telemetry. Nil disables telemetry
	// entirely rather than panicking on a nil queue.
	Audit *audit.Queue

	// Now returns the current time for event timestamps; tests can
	// replace it with a fixed clock.
	Now func() time.Time

	// Transport, when set, replaces the pinned-IP dialer entirely.
	// Production callers never set this; tests use it to exercise the
	// state machine against an httptest server without needing a
	// publicly routable pinned address.
	Transport http.RoundTripper
}

// DefaultOptions returns the conservative general-purpose fetch policy:
// same-registrable-domain redirects, up to 5 hops, 2 MiB response cap,
// 30s total timeout.
func DefaultOptions() Options {
	return Options{
		AllowedMethods:   DefaultAllowedMethods(),
		MaxResponseBytes: DefaultMaxResponseBytes,
		RedirectPolicy:   RedirectSameRegistrableDomain,
		MaxRedirects:     DefaultMaxRedirects,
		TotalTimeout:     DefaultTimeoutMs * time.Millisecond,
		Guard:            netguard.DefaultOptions(),
		DNS:              dnspin.DefaultOptions(),
		EvidenceLevel:    evidence.RedactionPublic,
		Now:              time.Now,
	}
}

// JWKSOptions returns the stricter policy used when fetching a JWKS
// document: no redirects at all and a 512 KiB response cap.
func JWKSOptions() Options {
	opts := DefaultOptions()
	opts.MaxResponseBytes = MaxJWKSResponseBytes
	opts.MaxRedirects = JWKSMaxRedirects
	opts.RedirectPolicy = RedirectNone
	return opts
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) emit(eventType, url string, meta map[string]any) {
	if o.Audit == nil {
		return
	}
	o.Audit.Emit(audit.NewEvent(eventType, o.now().UnixMilli(), url, meta))
}

func (o Options) evidenceLevel() evidence.RedactionLevel {
	if o.EvidenceLevel == "" {
		return evidence.RedactionPublic
	}
	return o.EvidenceLevel
}

func (o Options) stageTimeout(stage time.Duration) time.Duration {
	if stage > 0 {
		return stage
	}
	if o.TotalTimeout > 0 {
		return o.TotalTimeout
	}
	return DefaultTimeoutMs * time.Millisecond
}
