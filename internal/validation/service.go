package validation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"mailguard/internal/validation/checks"
	"mailguard/internal/validation/metrics"
)

// Classification messages. These cross the API boundary and are persisted,
// so their wording is stable.
const (
	msgInvalidFormat = "Invalid email format."
	msgNoMX          = "Domain has no valid MX records."
	msgDisposable    = "Email is from a disposable provider."
	msgBlacklisted   = "Domain is blacklisted."
	msgFreeProvider  = "Email is from a known free provider."
	msgValid         = "Email appears valid."
)

// MXChecker resolves MX hosts for a domain. A nil result means no records;
// implementations absorb their own failures.
type MXChecker interface {
	Records(ctx context.Context, domain string) []string
}

// Service runs the four validation checks and classifies the outcome.
type Service struct {
	mx            MXChecker
	disposable    *checks.DomainSet
	blacklisted   *checks.DomainSet
	freeProviders *checks.DomainSet
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// NewService constructs the validation service with its checkers.
func NewService(
	mx MXChecker,
	disposable, blacklisted, freeProviders *checks.DomainSet,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		mx:            mx,
		disposable:    disposable,
		blacklisted:   blacklisted,
		freeProviders: freeProviders,
		logger:        logger,
		metrics:       m,
	}
}

// Check runs all checks concurrently and classifies the email.
// It never returns an error: malformed input yields a Result with
// status=error, and a failed check counts as its zero value. Precedence is
// fixed: no MX, then disposable, then blacklisted, then free provider.
func (s *Service) Check(ctx context.Context, email string) Result {
	if email == "" || !strings.Contains(email, "@") {
		s.logger.WarnContext(ctx, "invalid email format", "email", email)
		return Result{
			Email:   email,
			Status:  StatusError,
			Message: msgInvalidFormat,
		}
	}

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])

	var (
		mxHosts        []string
		isDisposable   bool
		isBlacklisted  bool
		isFreeProvider bool
	)

	// Join-all fan-out: every branch absorbs its own failure and returns
	// nil, so one signal going dark never hides the others.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		start := time.Now()
		mxHosts = s.mx.Records(gctx, domain)
		s.metrics.ObserveCheckLatency("mx", time.Since(start))
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		isDisposable = s.disposable.Contains(domain)
		s.metrics.ObserveCheckLatency("disposable", time.Since(start))
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		isBlacklisted = s.blacklisted.Contains(domain)
		s.metrics.ObserveCheckLatency("blacklist", time.Since(start))
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		isFreeProvider = s.freeProviders.Contains(domain)
		s.metrics.ObserveCheckLatency("free_provider", time.Since(start))
		return nil
	})

	_ = g.Wait()

	result := Result{
		Email:          email,
		Domain:         domain,
		MXValid:        len(mxHosts) > 0,
		IsDisposable:   isDisposable,
		IsBlacklisted:  isBlacklisted,
		IsFreeProvider: isFreeProvider,
		Status:         StatusValid,
		Message:        msgValid,
	}

	switch {
	case !result.MXValid:
		result.Status = StatusError
		result.Message = msgNoMX
	case result.IsDisposable:
		result.Status = StatusError
		result.Message = msgDisposable
	case result.IsBlacklisted:
		result.Status = StatusError
		result.Message = msgBlacklisted
	case result.IsFreeProvider:
		result.Status = StatusWarning
		result.Message = msgFreeProvider
	}

	s.metrics.IncOutcome(string(result.Status))
	s.logger.InfoContext(ctx, "email validated",
		"email", email,
		"domain", domain,
		"status", result.Status,
		"message", result.Message,
	)
	return result
}
