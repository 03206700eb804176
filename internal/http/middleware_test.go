package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func mustTrust(t *testing.T, cidrs ...string) TrustedProxies {
	t.Helper()
	tp, err := ParseTrustedProxies(cidrs)
	require.NoError(t, err)
	return tp
}

func TestParseTrustedProxies(t *testing.T) {
	tp := mustTrust(t, "10.0.0.0/8", "192.0.2.7", " ", "2001:db8::/32")

	require.True(t, tp.Contains("10.1.2.3"))
	require.True(t, tp.Contains("192.0.2.7"))
	require.True(t, tp.Contains("::ffff:10.1.2.3"))
	require.True(t, tp.Contains("2001:db8::1"))
	require.False(t, tp.Contains("192.0.2.8"))
	require.False(t, tp.Contains("not-an-ip"))

	_, err := ParseTrustedProxies([]string{"10.0.0.0/40"})
	require.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	require.Error(t, err)
}

func TestExtractClientIP(t *testing.T) {
	trusted := []string{"10.0.0.0/8"}

	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		xff        string
		xRealIP    string
		expected   string
	}{
		{name: "untrusted peer ignores forwarded", remoteAddr: "203.0.113.9:1234", xff: "198.51.100.1", expected: "203.0.113.9"},
		{name: "untrusted peer ignores real ip", remoteAddr: "203.0.113.9:1234", xRealIP: "198.51.100.1", expected: "203.0.113.9"},
		{name: "no proxies configured", trusted: nil, remoteAddr: "10.0.0.2:1234", xff: "198.51.100.1", expected: "10.0.0.2"},
		{name: "trusted peer single hop", trusted: trusted, remoteAddr: "10.0.0.2:1234", xff: "198.51.100.1", expected: "198.51.100.1"},
		{name: "trusted peer trims spaces", trusted: trusted, remoteAddr: "10.0.0.2:1234", xff: "  198.51.100.1  ", expected: "198.51.100.1"},
		{name: "spoofed prefix is skipped", trusted: trusted, remoteAddr: "10.0.0.2:1234", xff: "1.2.3.4, 198.51.100.1", expected: "198.51.100.1"},
		{name: "trusted hops are skipped", trusted: trusted, remoteAddr: "10.0.0.2:1234", xff: "198.51.100.1, 10.0.0.9", expected: "198.51.100.1"},
		{name: "all hops trusted", trusted: trusted, remoteAddr: "10.0.0.2:1234", xff: "10.0.0.5, 10.0.0.9", expected: "10.0.0.5"},
		{name: "garbage hop falls back to peer", trusted: trusted, remoteAddr: "10.0.0.2:1234", xff: "bogus", expected: "10.0.0.2"},
		{name: "trusted peer real ip", trusted: trusted, remoteAddr: "10.0.0.2:1234", xRealIP: "198.51.100.1", expected: "198.51.100.1"},
		{name: "remote ipv6", remoteAddr: "[2001:db8::1]:443", expected: "2001:db8::1"},
		{name: "remote without port", remoteAddr: "192.0.2.50", expected: "192.0.2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xRealIP != "" {
				r.Header.Set("X-Real-IP", tt.xRealIP)
			}

			require.Equal(t, tt.expected, ExtractClientIP(r, mustTrust(t, tt.trusted...)))
		})
	}
}

func TestClientIPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	var gotIP string
	h := ClientIPMiddleware(mustTrust(t, "10.0.0.0/8"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = ClientIPFromContext(r.Context())
		zerolog.Ctx(r.Context()).Info().Msg("handled")
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.2:4711"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	r = r.WithContext(base.WithContext(r.Context()))
	h.ServeHTTP(httptest.NewRecorder(), r)

	require.Equal(t, "203.0.113.9", gotIP)
	require.Contains(t, buf.String(), `"client_ip":"203.0.113.9"`)
}

func TestClientIPFromContext_missing(t *testing.T) {
	require.Empty(t, ClientIPFromContext(context.Background()))
}
