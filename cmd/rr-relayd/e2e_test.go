package main

import (
	"context"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream answers every AAAA question with a fixed address over TCP.
type fakeUpstream struct {
	addr    string
	queries atomic.Int32
	srv     *dns.Server
}

func startUpstream(t *testing.T, ip string, ttl uint32) *fakeUpstream {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	up := &fakeUpstream{addr: ln.Addr().String()}
	started := make(chan struct{})
	up.srv = &dns.Server{
		Listener:          ln,
		Net:               "tcp",
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			up.queries.Add(1)
			m := new(dns.Msg)
			m.SetReply(r)
			// answer names must be pointers back to the question
			m.Compress = true
			q := r.Question[0]
			m.Answer = append(m.Answer, &dns.AAAA{
				Hdr:  dns.RR_Header{Name: q.Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: ttl},
				AAAA: net.ParseIP(ip),
			})
			_ = w.WriteMsg(m)
		}),
	}
	go func() { _ = up.srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = up.srv.Shutdown() })
	return up
}

// startRelay runs the full application against upstream and returns the
// relay's address.
func startRelay(t *testing.T, upstream string, env map[string]string) (string, *Application) {
	t.Helper()
	cfg := loadTestConfig(t, env)
	cfg.Relay.Upstream = upstream

	app, err := buildApplication(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	appErr := make(chan error, 1)
	go func() { appErr <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		return app.transport.Address() != cfg.ListenAddr()
	}, 2*time.Second, 10*time.Millisecond, "relay failed to start")

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-appErr:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("relay failed to shut down")
		}
	})

	_, port, err := net.SplitHostPort(app.transport.Address())
	require.NoError(t, err)
	return net.JoinHostPort("127.0.0.1", port), app
}

func query(t *testing.T, addr, name string, qtype uint16) *dns.Msg {
	t.Helper()
	c := &dns.Client{Net: "tcp", Timeout: 2 * time.Second}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	resp, _, err := c.Exchange(m, addr)
	require.NoError(t, err)
	require.Equal(t, m.Id, resp.Id)
	return resp
}

func TestE2E_RelayAndCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	up := startUpstream(t, "2001:db8::1", 300)
	addr, app := startRelay(t, up.addr, nil)

	first := query(t, addr, "example.com", dns.TypeAAAA)
	require.Equal(t, dns.RcodeSuccess, first.Rcode)
	require.Len(t, first.Answer, 1)
	aaaa, ok := first.Answer[0].(*dns.AAAA)
	require.True(t, ok)
	assert.Equal(t, "2001:db8::1", aaaa.AAAA.String())
	assert.Equal(t, uint32(300), aaaa.Hdr.Ttl)

	second := query(t, addr, "example.com", dns.TypeAAAA)
	require.Len(t, second.Answer, 1)
	assert.Equal(t, "2001:db8::1", second.Answer[0].(*dns.AAAA).AAAA.String())
	assert.LessOrEqual(t, second.Answer[0].Header().Ttl, uint32(300))

	assert.Equal(t, int32(1), up.queries.Load(), "second query must be served from cache")
	st := app.relay.Stats()
	assert.Equal(t, uint64(2), st.Requests)
	assert.Equal(t, uint64(1), st.CacheHits)
	assert.Equal(t, uint64(1), st.Forwarded)

	// the event log is written synchronously
	data, err := os.ReadFile(app.config.Events.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "requested example.com")
	assert.Contains(t, string(data), "example.com is at 2001:db8::1")
	assert.Contains(t, string(data), "example.com expires at ")
}

func TestE2E_UnsupportedQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	up := startUpstream(t, "2001:db8::1", 300)
	addr, app := startRelay(t, up.addr, nil)

	resp := query(t, addr, "example.com", dns.TypeA)
	assert.True(t, resp.Response)
	assert.Equal(t, dns.RcodeNotImplemented, resp.Rcode)
	assert.False(t, resp.RecursionDesired)
	assert.Empty(t, resp.Answer)
	assert.Equal(t, int32(0), up.queries.Load())

	data, err := os.ReadFile(app.config.Events.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "unimplemented request")
}

func TestE2E_Denylist(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping E2E test in short mode")
	}
	rulesDir := t.TempDir()
	require.NoError(t, os.WriteFile(rulesDir+"/block.txt", []byte("*.blocked.example\n"), 0o600))

	up := startUpstream(t, "2001:db8::1", 300)
	addr, _ := startRelay(t, up.addr, map[string]string{
		"DNS_DENYLIST_ENABLED": "true",
		"DNS_DENYLIST_DIR":     rulesDir,
	})

	resp := query(t, addr, "www.Blocked.example", dns.TypeAAAA)
	assert.Equal(t, dns.RcodeRefused, resp.Rcode)
	assert.Empty(t, resp.Answer)
	assert.Equal(t, int32(0), up.queries.Load())

	ok := query(t, addr, "allowed.example", dns.TypeAAAA)
	assert.Equal(t, dns.RcodeSuccess, ok.Rcode)
	assert.Equal(t, int32(1), up.queries.Load())
}
