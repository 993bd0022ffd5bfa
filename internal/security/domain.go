package security

import "strings"

// domainMatches reports whether domain satisfies pattern, with a leading
// "*." in pattern matching the bare parent domain and any subdomain of it.
func domainMatches(domain, pattern string) bool {
	domain = strings.ToLower(domain)
	pattern = strings.ToLower(pattern)
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return domain == base || strings.HasSuffix(domain, "."+base)
	}
	return domain == pattern
}

// CheckDomainAccess checks host against the scanner's deny list. Registry
// hosts (registry.npmjs.org, pypi.org, crates.io, proxy.golang.org,
// repo1.maven.org, ...) are never pre-populated as trusted here: by default
// nothing is denied, and an operator opts in to blocking specific hosts
// (a compromised mirror, an internal policy) via DEPINDEX_SECURITY_DENY_DOMAINS.
func (s *Scanner) CheckDomainAccess(host string) error {
	s.mu.RLock()
	cfg := s.config
	s.mu.RUnlock()

	if !cfg.Enabled || host == "" {
		return nil
	}
	for _, deny := range cfg.DenyDomains {
		if domainMatches(host, deny) {
			return &SecurityError{Domain: host, Reason: "matches " + deny}
		}
	}
	return nil
}
