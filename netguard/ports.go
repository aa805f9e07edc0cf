package netguard

// DangerousPorts lists ports that, even when explicitly allow-listed, still
// require the dangerous-port acknowledgment: allow-listing a port is a
// statement "I expect to talk to this port", not "I expect to talk to the
// internal services that usually live there".
var DangerousPorts = map[int]bool{
	22:    true, // SSH
	25:    true, // SMTP
	3306:  true, // MySQL
	5432:  true, // PostgreSQL
	6379:  true, // Redis
	6443:  true, // Kubernetes API
	27017: true, // MongoDB
}

// DefaultAllowedPorts are the ports permitted without any explicit
// allow-list entry.
var DefaultAllowedPorts = map[int]bool{
	80:  true,
	443: true,
}
