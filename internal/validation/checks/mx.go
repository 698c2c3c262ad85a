package checks

import (
	"context"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Public suffixes that can never receive mail (RFC 2606 reserved names,
// Tor pseudo-TLDs). A domain under any of these is rejected before DNS.
var deniedSuffixes = map[string]struct{}{
	"example":    {},
	"invalid":    {},
	"test":       {},
	"localhost":  {},
	"local":      {},
	"onion":      {},
	"onion.link": {},
}

// Well-known placeholder domains that resolve in some environments but are
// never legitimate senders.
var deniedDomains = map[string]struct{}{
	"example.com":   {},
	"test.com":      {},
	"localhost.com": {},
	"invalid.com":   {},
}

// LookupFunc resolves the MX records for a domain. Injectable for tests.
type LookupFunc func(ctx context.Context, domain string) ([]*net.MX, error)

// MXCache stores resolved MX hosts keyed by domain. Implementations must
// treat their own failures as misses; the checker never sees cache errors.
type MXCache interface {
	Get(ctx context.Context, domain string) ([]string, bool)
	Set(ctx context.Context, domain string, hosts []string)
}

// MXConfig configures an MXChecker. Zero values get sensible defaults.
type MXConfig struct {
	Timeout time.Duration
	Lookup  LookupFunc
	Cache   MXCache
	Logger  *slog.Logger
}

// MXChecker resolves MX records with a bounded DNS timeout. Every failure
// mode (deny-listed domain, resolver error, timeout, empty answer) collapses
// to "no records": callers only ever see a host list, never an error.
type MXChecker struct {
	timeout time.Duration
	lookup  LookupFunc
	cache   MXCache
	logger  *slog.Logger
}

// NewMXChecker builds a checker from the given configuration.
func NewMXChecker(cfg MXConfig) *MXChecker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Lookup == nil {
		cfg.Lookup = func(ctx context.Context, domain string) ([]*net.MX, error) {
			return net.DefaultResolver.LookupMX(ctx, domain)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MXChecker{
		timeout: cfg.Timeout,
		lookup:  cfg.Lookup,
		cache:   cfg.Cache,
		logger:  cfg.Logger,
	}
}

// Records returns the MX hosts for the domain, ordered by preference.
// A nil return means the domain has no usable MX records.
func (c *MXChecker) Records(ctx context.Context, domain string) []string {
	domain = NormalizeDomain(domain)
	if domain == "" {
		return nil
	}

	if denied(domain) {
		c.logger.WarnContext(ctx, "domain rejected before DNS lookup", "domain", domain)
		return nil
	}

	if c.cache != nil {
		if hosts, ok := c.cache.Get(ctx, domain); ok {
			return hosts
		}
	}

	// The DNS budget is independent of whatever remains on the caller's context.
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	mxs, err := c.lookup(lookupCtx, domain)
	if err != nil {
		c.logger.ErrorContext(ctx, "mx lookup failed", "domain", domain, "error", err)
		return nil
	}
	if len(mxs) == 0 {
		return nil
	}

	sort.SliceStable(mxs, func(i, j int) bool { return mxs[i].Pref < mxs[j].Pref })
	hosts := make([]string, 0, len(mxs))
	for _, mx := range mxs {
		if host := strings.TrimSuffix(mx.Host, "."); host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return nil
	}

	if c.cache != nil {
		c.cache.Set(ctx, domain, hosts)
	}
	return hosts
}

// NormalizeDomain strips URL artifacts that show up in CRM-sourced data
// (scheme prefixes, a leading www.) and lower-cases the result.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "www.")
	return domain
}

// denied reports whether the domain is a placeholder domain or sits under a
// non-routable suffix. PublicSuffix falls back to the last label for names
// outside the PSL, which covers the single-label reserved TLDs; multi-label
// entries like onion.link are matched by suffix.
func denied(domain string) bool {
	if _, ok := deniedDomains[domain]; ok {
		return true
	}
	suffix, _ := publicsuffix.PublicSuffix(domain)
	if _, ok := deniedSuffixes[suffix]; ok {
		return true
	}
	for s := range deniedSuffixes {
		if domain == s || strings.HasSuffix(domain, "."+s) {
			return true
		}
	}
	return false
}
