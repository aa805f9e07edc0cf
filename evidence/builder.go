package evidence

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net"

	"github.com/peacprotocol/peac-go/cryptoerr"
	"github.com/peacprotocol/peac-go/jcs"
)

// RedactionLevel controls how much network detail a finalized evidence
// artifact carries. "public" is safe to hand to the counterparty that
// triggered the fetch; "private" and "tenant" are for the operator's
// own audit trail.
type RedactionLevel string

const (
	RedactionPublic  RedactionLevel = "public"
	RedactionPrivate RedactionLevel = "private"
	RedactionTenant  RedactionLevel = "tenant"
)

// minTenantKeyBytes is the minimum redaction key length tenant-level
// evidence requires.
const minTenantKeyBytes = 32

const evidenceSchemaVersion = "peac-safe-fetch-evidence/0.1"

// SelectedIPInfo is the redacted form of the pinned address, carried at
// public and tenant evidence levels.
type SelectedIPInfo struct {
	Family int    `json:"family"`
	Hash   string `json:"hash"`
	KeyID  string `json:"key_id,omitempty"`
}

// DNSAnswerCount totals a resolution's addresses by family, regardless of
// whether any of them were blocked from pinning.
type DNSAnswerCount struct {
	IPv4 int `json:"ipv4"`
	IPv6 int `json:"ipv6"`
}

// DNSAnswerRecord is one raw DNS answer as carried at the private level.
// BlockedReason is set when the answer was excluded from pinning.
type DNSAnswerRecord struct {
	IP            string `json:"ip"`
	BlockedReason string `json:"blocked_reason,omitempty"`
}

// DNSAnswer is the builder-facing view of a resolved address, before it is
// redacted down to the level-appropriate wire shape.
type DNSAnswer struct {
	IP            net.IP
	BlockedReason string
}

// Evidence is the structured, immutable record the Safe Fetch engine
// produces for one completed (successful or blocked) request, sealed by
// EvidenceDigest.
type Evidence struct {
	SchemaVersion    string         `json:"schema_version"`
	EvidenceLevel    RedactionLevel `json:"evidence_level"`
	RequestTimestamp int64          `json:"request_timestamp"`
	RequestURL       string         `json:"request_url"`
	Method           string         `json:"method,omitempty"`
	CanonicalHost    string         `json:"canonical_host"`
	IsIPLiteral      bool           `json:"is_ip_literal"`
	PolicyDecision   string         `json:"policy_decision"`
	DecisionCode     string         `json:"decision_code,omitempty"`
	StatusCode       int            `json:"status_code,omitempty"`
	MaxResponseBytes int64          `json:"max_response_bytes"`
	Redirects        int            `json:"redirects"`

	SelectedIPInfo *SelectedIPInfo   `json:"selected_ip_info,omitempty"`
	DNSAnswerCount *DNSAnswerCount   `json:"dns_answer_count,omitempty"`
	SelectedIP     string            `json:"selected_ip,omitempty"`
	DNSAnswers     []DNSAnswerRecord `json:"dns_answers,omitempty"`

	AuditTruncated bool        `json:"audit_truncated,omitempty"`
	AuditStats     *AuditStats `json:"audit_stats,omitempty"`
	EvidenceDigest string      `json:"evidence_digest,omitempty"`
}

// AuditStats summarizes the audit queue's behavior over the course of one
// request, attached whenever events were dropped.
type AuditStats struct {
	Pending int64 `json:"pending"`
	Dropped int64 `json:"dropped"`
}

// BuildContext carries everything FinalizeEvidence needs beyond the bare
// request outcome: the redaction level in effect, its key material, and
// the DNS/IP detail observed during the hop.
type BuildContext struct {
	Level          RedactionLevel
	RedactionKey   []byte // required, >=32B, when Level == RedactionTenant
	RedactionKeyID string // required when Level == RedactionTenant
	Dropped        int64
	Pending        int64
	DNSAnswers     []DNSAnswer
	SelectedIP     net.IP
}

// Core is the redaction-independent substance of one fetch outcome.
type Core struct {
	RequestURL       string
	Method           string
	PolicyDecision   string // "allow" | "block"
	StatusCode       int
	DecisionCode     string
	CanonicalHost    string
	IsIPLiteral      bool
	RequestTimestamp int64
	Redirects        int
	MaxResponseBytes int64
}

// FinalizeEvidence builds the redaction-appropriate Evidence for core
// under ctx, then seals it with a JCS+SHA-256 digest computed over the
// evidence object with evidence_digest itself excluded.
func FinalizeEvidence(core Core, ctx BuildContext) (*Evidence, error) {
	level := ctx.Level
	if level == "" {
		level = RedactionPublic
	}

	if level == RedactionTenant {
		if len(ctx.RedactionKey) < minTenantKeyBytes {
			return nil, cryptoerr.New(cryptoerr.TenantKeyTooShort, "tenant redaction key must be at least 32 bytes")
		}
		if ctx.RedactionKeyID == "" {
			return nil, cryptoerr.New(cryptoerr.TenantKeyIDMissing, "tenant-level evidence requires a redaction key id")
		}
	}

	ev := &Evidence{
		SchemaVersion:    evidenceSchemaVersion,
		EvidenceLevel:    level,
		RequestTimestamp: core.RequestTimestamp,
		RequestURL:       core.RequestURL,
		Method:           core.Method,
		CanonicalHost:    core.CanonicalHost,
		IsIPLiteral:      core.IsIPLiteral,
		PolicyDecision:   core.PolicyDecision,
		DecisionCode:     core.DecisionCode,
		StatusCode:       core.StatusCode,
		MaxResponseBytes: core.MaxResponseBytes,
		Redirects:        core.Redirects,
	}

	if ctx.Dropped > 0 {
		ev.AuditTruncated = true
		ev.AuditStats = &AuditStats{Pending: ctx.Pending, Dropped: ctx.Dropped}
	}

	if len(ctx.DNSAnswers) > 0 {
		count := &DNSAnswerCount{}
		for _, a := range ctx.DNSAnswers {
			if a.IP.To4() != nil {
				count.IPv4++
			} else {
				count.IPv6++
			}
		}
		ev.DNSAnswerCount = count
	}

	switch {
	case level == RedactionPrivate:
		for _, a := range ctx.DNSAnswers {
			ev.DNSAnswers = append(ev.DNSAnswers, DNSAnswerRecord{IP: a.IP.String(), BlockedReason: a.BlockedReason})
		}
		if ctx.SelectedIP != nil {
			ev.SelectedIP = ctx.SelectedIP.String()
		}
	case ctx.SelectedIP != nil:
		hash, err := hashIPAddress(ctx.SelectedIP, level, ctx.RedactionKey)
		if err != nil {
			return nil, err
		}
		info := &SelectedIPInfo{Family: ipFamily(ctx.SelectedIP), Hash: hash}
		if level == RedactionTenant {
			info.KeyID = ctx.RedactionKeyID
		}
		ev.SelectedIPInfo = info
	}

	digest, err := digestExcludingSelf(ev)
	if err != nil {
		return nil, err
	}
	ev.EvidenceDigest = digest
	return ev, nil
}

// digestExcludingSelf computes "0x" + hex(SHA-256(JCS(ev))) with the
// evidence_digest field itself removed from the canonicalized object,
// so the digest is reproducible by anyone re-deriving it from the rest
// of the artifact.
func digestExcludingSelf(ev *Evidence) (string, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}
	delete(m, "evidence_digest")

	canon, err := jcs.Canonicalize(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// hashIPAddress hashes an IP for the public/tenant evidence levels.
// "public" uses a plain SHA-256 over the canonical address bytes;
// "tenant" substitutes HMAC-SHA-256 keyed by redactionKey so that two
// tenants cannot correlate IPs by comparing hashes. Private-level evidence
// never calls this: it carries the raw address instead.
func hashIPAddress(ip net.IP, level RedactionLevel, redactionKey []byte) (string, error) {
	canon := canonicalIPBytes(ip)

	if level == RedactionTenant {
		if len(redactionKey) == 0 {
			return "", cryptoerr.New(cryptoerr.TenantKeyMissing, "redaction key is required for tenant-level evidence")
		}
		mac := hmac.New(sha256.New, redactionKey)
		mac.Write(canon)
		return "0x" + hex.EncodeToString(mac.Sum(nil)), nil
	}

	sum := sha256.Sum256(canon)
	return "0x" + hex.EncodeToString(sum[:]), nil
}

// canonicalIPBytes returns the IPv4 4-byte form for v4 addresses (even
// when expressed as IPv4-mapped IPv6) and the 16-byte form otherwise,
// so the same address always hashes to the same value regardless of
// how it was represented.
func canonicalIPBytes(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

func ipFamily(ip net.IP) int {
	if ip.To4() != nil {
		return 4
	}
	return 6
}
