package evidence

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DNSResult summarizes the records relevant to domain legitimacy.
type DNSResult struct {
	Addresses []string
	HasA      bool
	HasMX     bool
	HasSPF    bool
}

// DNSChecker resolves A, MX and TXT records against fixed resolvers.
type DNSChecker struct {
	client  *dns.Client
	servers []string
}

// NewDNSChecker creates a checker. Servers without a port get :53.
func NewDNSChecker(servers []string, timeout time.Duration) *DNSChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	return &DNSChecker{
		client:  &dns.Client{Net: "udp", Timeout: timeout},
		servers: normalized,
	}
}

// Check queries A, MX and TXT for domain. NXDOMAIN and empty answers are
// results, not errors.
func (c *DNSChecker) Check(ctx context.Context, domain string) (DNSResult, error) {
	var res DNSResult

	a, err := c.query(ctx, domain, dns.TypeA)
	if err != nil {
		return res, err
	}
	for _, rr := range a {
		if rec, ok := rr.(*dns.A); ok {
			res.HasA = true
			res.Addresses = append(res.Addresses, rec.A.String())
		}
	}

	mx, err := c.query(ctx, domain, dns.TypeMX)
	if err != nil {
		return res, err
	}
	for _, rr := range mx {
		if _, ok := rr.(*dns.MX); ok {
			res.HasMX = true
			break
		}
	}

	txt, err := c.query(ctx, domain, dns.TypeTXT)
	if err != nil {
		return res, err
	}
	for _, rr := range txt {
		if rec, ok := rr.(*dns.TXT); ok && strings.HasPrefix(strings.Join(rec.Txt, ""), "v=spf1") {
			res.HasSPF = true
			break
		}
	}

	return res, nil
}

// query asks each server in turn and returns the first definitive answer.
func (c *DNSChecker) query(ctx context.Context, domain string, qType uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(domain), qType)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range c.servers {
		r, _, err := c.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch r.Rcode {
		case dns.RcodeSuccess:
			return r.Answer, nil
		case dns.RcodeNameError:
			return nil, nil
		default:
			lastErr = fmt.Errorf("%s %s: %s", dns.TypeToString[qType], domain, dns.RcodeToString[r.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no dns servers configured")
	}
	return nil, fmt.Errorf("dns: %w", lastErr)
}
