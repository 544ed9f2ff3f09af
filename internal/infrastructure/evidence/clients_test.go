package evidence_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/phishguard/internal/infrastructure/evidence"
)

func TestSafeBrowsingClient_Check(t *testing.T) {
	t.Run("returns distinct threat types", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "secret", r.URL.Query().Get("key"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			info := body["threatInfo"].(map[string]any)
			assert.Len(t, info["threatEntries"], 2)
			assert.Contains(t, info["threatTypes"], "SOCIAL_ENGINEERING")

			_, _ = w.Write([]byte(`{"matches":[
				{"threatType":"SOCIAL_ENGINEERING","threat":{"url":"http://bad.test/"}},
				{"threatType":"SOCIAL_ENGINEERING","threat":{"url":"https://bad.test/"}},
				{"threatType":"MALWARE","threat":{"url":"https://bad.test/"}}
			]}`))
		}))
		defer srv.Close()

		c := evidence.NewSafeBrowsingClient(srv.Client(), srv.URL, "secret", "1.0.0")
		threats, err := c.Check(context.Background(), "http://bad.test/", "https://bad.test/")

		require.NoError(t, err)
		assert.Equal(t, []string{"SOCIAL_ENGINEERING", "MALWARE"}, threats)
	})

	t.Run("empty body means no match", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		threats, err := evidence.NewSafeBrowsingClient(srv.Client(), srv.URL, "k", "1").Check(context.Background(), "https://ok.test/")

		require.NoError(t, err)
		assert.Empty(t, threats)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := evidence.NewSafeBrowsingClient(srv.Client(), srv.URL, "k", "1").Check(context.Background(), "https://ok.test/")

		assert.ErrorContains(t, err, "unexpected status 403")
	})
}

func TestRDAPClient_RegistrationDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/example.com":
			_, _ = w.Write([]byte(`{"events":[
				{"eventAction":"last changed","eventDate":"2024-01-01T00:00:00Z"},
				{"eventAction":"registration","eventDate":"1995-08-14T04:00:00Z"}
			]}`))
		case "/noevents.test":
			_, _ = w.Write([]byte(`{"events":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := evidence.NewRDAPClient(srv.Client(), srv.URL)

	t.Run("parses registration event", func(t *testing.T) {
		got, err := c.RegistrationDate(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC), got)
	})

	t.Run("missing registration event", func(t *testing.T) {
		_, err := c.RegistrationDate(context.Background(), "noevents.test")
		assert.ErrorIs(t, err, evidence.ErrRegistrationUnknown)
	})

	t.Run("unknown domain", func(t *testing.T) {
		_, err := c.RegistrationDate(context.Background(), "missing.test")
		assert.ErrorContains(t, err, "unexpected status 404")
	})
}

func startDNSServer(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSChecker_Check(t *testing.T) {
	addr := startDNSServer(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]
		switch q.Name {
		case "mail.test.":
			var rr dns.RR
			switch q.Qtype {
			case dns.TypeA:
				rr, _ = dns.NewRR("mail.test. 60 IN A 192.0.2.10")
			case dns.TypeMX:
				rr, _ = dns.NewRR("mail.test. 60 IN MX 10 mx.mail.test.")
			case dns.TypeTXT:
				rr, _ = dns.NewRR(`mail.test. 60 IN TXT "v=spf1 -all"`)
			}
			if rr != nil {
				m.Answer = append(m.Answer, rr)
			}
		case "broken.test.":
			m.SetRcode(r, dns.RcodeServerFailure)
		default:
			m.SetRcode(r, dns.RcodeNameError)
		}
		_ = w.WriteMsg(m)
	})

	c := evidence.NewDNSChecker([]string{addr}, time.Second)

	t.Run("full mail setup", func(t *testing.T) {
		res, err := c.Check(context.Background(), "mail.test")
		require.NoError(t, err)
		assert.True(t, res.HasA)
		assert.True(t, res.HasMX)
		assert.True(t, res.HasSPF)
		assert.Equal(t, []string{"192.0.2.10"}, res.Addresses)
	})

	t.Run("nxdomain has no records", func(t *testing.T) {
		res, err := c.Check(context.Background(), "nowhere.test")
		require.NoError(t, err)
		assert.False(t, res.HasA)
		assert.False(t, res.HasMX)
	})

	t.Run("servfail is an error", func(t *testing.T) {
		_, err := c.Check(context.Background(), "broken.test")
		assert.ErrorContains(t, err, "SERVFAIL")
	})
}
