// Package evidence gathers external reputation signals for a domain:
// Safe Browsing matches, DNS records and registration age.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bibbank/phishguard/internal/domain/model"
)

// SafeBrowsingChecker reports the threat types matched by any of urls.
type SafeBrowsingChecker interface {
	Check(ctx context.Context, urls ...string) ([]string, error)
}

// DNSLookup resolves the legitimacy-relevant records of a domain.
type DNSLookup interface {
	Check(ctx context.Context, domain string) (DNSResult, error)
}

// RegistrationLookup returns when a domain was registered.
type RegistrationLookup interface {
	RegistrationDate(ctx context.Context, domain string) (time.Time, error)
}

// Config holds the gateway's rate limit and age thresholds.
type Config struct {
	RatePerSecond     float64
	Burst             int
	MinDomainAgeDays  int
	SafeDomainAgeDays int
}

// DefaultConfig returns the standard gateway settings.
func DefaultConfig() Config {
	return Config{
		RatePerSecond:     50,
		Burst:             100,
		MinDomainAgeDays:  30,
		SafeDomainAgeDays: 365,
	}
}

const (
	adjustSafeBrowsingMatch = 0.3
	adjustNewDomain         = 0.15
	adjustEstablishedDomain = -0.1
	adjustNoARecord         = 0.1
	adjustMailConfigured    = -0.05
	maxAdjustment           = 0.3
)

// Gateway implements port.EvidenceGateway. Any source may be nil, in which
// case it is skipped.
type Gateway struct {
	safeBrowsing SafeBrowsingChecker
	dns          DNSLookup
	registration RegistrationLookup
	limiter      *rate.Limiter
	logger       *slog.Logger
	now          func() time.Time
	cfg          Config
}

// NewGateway creates a Gateway.
func NewGateway(sb SafeBrowsingChecker, dnsLookup DNSLookup, reg RegistrationLookup, cfg Config, logger *slog.Logger) *Gateway {
	def := DefaultConfig()
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MinDomainAgeDays <= 0 {
		cfg.MinDomainAgeDays = def.MinDomainAgeDays
	}
	if cfg.SafeDomainAgeDays <= 0 {
		cfg.SafeDomainAgeDays = def.SafeDomainAgeDays
	}
	return &Gateway{
		safeBrowsing: sb,
		dns:          dnsLookup,
		registration: reg,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:       logger,
		now:          time.Now,
		cfg:          cfg,
	}
}

// Lookup queries every configured source concurrently under deadline.
// It never fails: when no source answers, the result is unavailable.
func (g *Gateway) Lookup(ctx context.Context, domain string, deadline time.Time) model.Evidence {
	if domain == "" {
		return model.UnavailableEvidence(domain, "evidence unavailable: empty domain")
	}
	if !g.limiter.Allow() {
		g.logger.Warn("evidence lookup rate limited", "domain", domain)
		return model.UnavailableEvidence(domain, "evidence unavailable: rate limited")
	}

	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ev := model.Evidence{Domain: domain}
	var (
		mu        sync.Mutex
		succeeded int
		attempted int
	)
	fail := func(source string, err error) {
		mu.Lock()
		defer mu.Unlock()
		ev.Warnings = append(ev.Warnings, fmt.Sprintf("%s check failed: %v", source, err))
		g.logger.Warn("evidence source failed", "source", source, "domain", domain, "error", err)
	}

	// Sources record their own failures so one slow lookup never cancels the others.
	var eg errgroup.Group

	if g.safeBrowsing != nil {
		attempted++
		eg.Go(func() error {
			threats, err := g.safeBrowsing.Check(ctx, "http://"+domain+"/", "https://"+domain+"/")
			if err != nil {
				fail("safe browsing", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			succeeded++
			ev.SafeBrowsingChecked = true
			ev.SafeBrowsingMatch = len(threats) > 0
			ev.ThreatTypes = threats
			return nil
		})
	}

	if g.dns != nil {
		attempted++
		eg.Go(func() error {
			res, err := g.dns.Check(ctx, domain)
			if err != nil {
				fail("dns", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			succeeded++
			ev.DNSChecked = true
			ev.HasA = res.HasA
			ev.HasMX = res.HasMX
			ev.HasSPF = res.HasSPF
			return nil
		})
	}

	if g.registration != nil {
		attempted++
		eg.Go(func() error {
			registered, err := g.registration.RegistrationDate(ctx, domain)
			if err != nil {
				fail("domain age", err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			succeeded++
			ev.AgeChecked = true
			ev.DomainAgeDays = int(g.now().Sub(registered).Hours() / 24)
			return nil
		})
	}

	_ = eg.Wait()

	if attempted == 0 {
		return model.UnavailableEvidence(domain, "evidence unavailable: no sources configured")
	}
	if succeeded == 0 {
		out := model.UnavailableEvidence(domain, "")
		out.Warnings = ev.Warnings
		return out
	}

	ev.Available = true
	ev.RiskAdjustment = g.riskAdjustment(ev)
	return ev
}

// riskAdjustment shifts the trust score by the external signals found.
func (g *Gateway) riskAdjustment(ev model.Evidence) float64 {
	var adj float64
	if ev.SafeBrowsingMatch {
		adj += adjustSafeBrowsingMatch
	}
	if ev.AgeChecked {
		switch {
		case ev.DomainAgeDays < g.cfg.MinDomainAgeDays:
			adj += adjustNewDomain
		case ev.DomainAgeDays > g.cfg.SafeDomainAgeDays:
			adj += adjustEstablishedDomain
		}
	}
	if ev.DNSChecked {
		if !ev.HasA {
			adj += adjustNoARecord
		}
		if ev.HasMX && ev.HasSPF {
			adj += adjustMailConfigured
		}
	}
	adj = math.Max(-maxAdjustment, math.Min(maxAdjustment, adj))
	return math.Round(adj*1000) / 1000
}
