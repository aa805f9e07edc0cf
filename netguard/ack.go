package netguard

// Acknowledgment strings are byte-exact opt-in tokens a caller must supply
// to enable a dangerous policy. They exist so that enabling a risky option
// cannot happen by accident (a stray "true" in a config file); the caller
// must copy a sentence that states what they are accepting.
const (
	AckAllowPrivateCIDRs = "I_UNDERSTAND_ALLOWING_PRIVATE_CIDRS_IS_DANGEROUS"
	AckAllowCGNAT        = "I_UNDERSTAND_CGNAT_SECURITY_RISKS"
	AckAllowMixedDNS     = "I_UNDERSTAND_MIXED_DNS_RISKS"
	AckAllowDangerousPort = "I_UNDERSTAND_DANGEROUS_PORTS"
)
