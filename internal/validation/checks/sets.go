package checks

import (
	"strings"

	strutil "mailguard/pkg/platform/strings"
)

// Built-in membership lists. Deployments extend them through configuration;
// the sets themselves are immutable once constructed.
var (
	DefaultDisposableDomains = []string{
		"mailinator.com",
		"10minutemail.com",
		"guerrillamail.com",
	}

	DefaultBlacklistedDomains = []string{
		"spamdomain.com",
		"malicious.org",
	}

	DefaultFreeProviderDomains = []string{
		"gmail.com",
		"yahoo.com",
		"outlook.com",
		"hotmail.com",
	}
)

// DomainSet is a read-only, case-insensitive membership set of domains.
type DomainSet struct {
	members map[string]struct{}
}

// NewDomainSet builds a set from the given domains plus any extras.
func NewDomainSet(domains []string, extra ...string) *DomainSet {
	all := strutil.DedupeAndTrimLower(append(append([]string{}, domains...), extra...))
	members := make(map[string]struct{}, len(all))
	for _, d := range all {
		members[d] = struct{}{}
	}
	return &DomainSet{members: members}
}

// Contains reports whether the domain is a member of the set.
func (s *DomainSet) Contains(domain string) bool {
	_, ok := s.members[strings.ToLower(strings.TrimSpace(domain))]
	return ok
}

// Len returns the number of domains in the set.
func (s *DomainSet) Len() int {
	return len(s.members)
}
