package validation

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"mailguard/internal/validation/checks"
)

type stubMX struct {
	hosts map[string][]string
	calls atomic.Int32
}

func (s *stubMX) Records(_ context.Context, domain string) []string {
	s.calls.Add(1)
	return s.hosts[domain]
}

func newTestService(mx MXChecker) *Service {
	return NewService(
		mx,
		checks.NewDomainSet(checks.DefaultDisposableDomains),
		checks.NewDomainSet(checks.DefaultBlacklistedDomains),
		checks.NewDomainSet(checks.DefaultFreeProviderDomains),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		nil,
	)
}

func TestCheckInvalidFormatShortCircuits(t *testing.T) {
	mx := &stubMX{}
	svc := newTestService(mx)

	for _, email := range []string{"", "plainaddress", "no-at-sign.com"} {
		res := svc.Check(context.Background(), email)
		assert.Equal(t, StatusError, res.Status, email)
		assert.Equal(t, "Invalid email format.", res.Message, email)
		assert.Equal(t, email, res.Email)
		assert.Empty(t, res.Domain)
		assert.False(t, res.MXValid)
	}
	assert.Zero(t, mx.calls.Load(), "no checks may run on malformed input")
}

func TestCheckValid(t *testing.T) {
	svc := newTestService(&stubMX{hosts: map[string][]string{
		"corp.org": {"mx1.corp.org"},
	}})

	res := svc.Check(context.Background(), "user@corp.org")
	assert.Equal(t, StatusValid, res.Status)
	assert.Equal(t, "Email appears valid.", res.Message)
	assert.Equal(t, "corp.org", res.Domain)
	assert.True(t, res.MXValid)
	assert.False(t, res.IsDisposable)
	assert.Empty(t, res.SyncError)
}

func TestCheckNoMXRecords(t *testing.T) {
	svc := newTestService(&stubMX{})

	res := svc.Check(context.Background(), "user@unroutable.org")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Domain has no valid MX records.", res.Message)
	assert.False(t, res.MXValid)
}

func TestCheckDisposableProvider(t *testing.T) {
	svc := newTestService(&stubMX{hosts: map[string][]string{
		"mailinator.com": {"mx.mailinator.com"},
	}})

	res := svc.Check(context.Background(), "user@mailinator.com")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Email is from a disposable provider.", res.Message)
	assert.True(t, res.IsDisposable)
	assert.True(t, res.MXValid)
}

func TestCheckBlacklistedDomain(t *testing.T) {
	svc := newTestService(&stubMX{hosts: map[string][]string{
		"spamdomain.com": {"mx.spamdomain.com"},
	}})

	res := svc.Check(context.Background(), "user@spamdomain.com")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Domain is blacklisted.", res.Message)
	assert.True(t, res.IsBlacklisted)
}

func TestCheckFreeProviderIsWarning(t *testing.T) {
	svc := newTestService(&stubMX{hosts: map[string][]string{
		"gmail.com": {"gmail-smtp-in.l.google.com"},
	}})

	res := svc.Check(context.Background(), "user@gmail.com")
	assert.Equal(t, StatusWarning, res.Status)
	assert.Equal(t, "Email is from a known free provider.", res.Message)
	assert.True(t, res.IsFreeProvider)
	assert.True(t, res.MXValid)
}

// MX failure must outrank disposable: a disposable domain with no MX reports
// the MX message.
func TestCheckPrecedenceMXBeforeDisposable(t *testing.T) {
	svc := newTestService(&stubMX{})

	res := svc.Check(context.Background(), "user@mailinator.com")
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Domain has no valid MX records.", res.Message)
	assert.True(t, res.IsDisposable, "signal is still recorded")
}

func TestCheckDomainAfterLastAt(t *testing.T) {
	svc := newTestService(&stubMX{hosts: map[string][]string{
		"corp.org": {"mx1.corp.org"},
	}})

	res := svc.Check(context.Background(), `"odd@local"@CORP.org`)
	assert.Equal(t, "corp.org", res.Domain)
	assert.True(t, res.MXValid)
}
