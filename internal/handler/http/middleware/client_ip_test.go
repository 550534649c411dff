package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.1 ", "", "::1"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.1.1/32"),
		netip.MustParsePrefix("::1/128"),
	}, got)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.ErrorContains(t, err, "not-an-ip")
}

func TestClientIP(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name    string
		remote  string
		xff     string
		xri     string
		trusted []netip.Prefix
		want    string
	}{
		{name: "remote addr", remote: "203.0.113.5:4321", want: "203.0.113.5"},
		{name: "xff ignored without trust", remote: "203.0.113.5:4321", xff: "198.51.100.1", want: "203.0.113.5"},
		{name: "xff ignored from untrusted peer", remote: "203.0.113.5:4321", xff: "198.51.100.1", trusted: trusted, want: "203.0.113.5"},
		{name: "xff first hop from trusted peer", remote: "10.1.2.3:80", xff: "198.51.100.1, 10.1.2.3", trusted: trusted, want: "198.51.100.1"},
		{name: "x-real-ip fallback", remote: "10.1.2.3:80", xri: "198.51.100.9", trusted: trusted, want: "198.51.100.9"},
		{name: "garbage xff", remote: "10.1.2.3:80", xff: "nope", trusted: trusted, want: "10.1.2.3"},
		{name: "remote without port", remote: "203.0.113.5", want: "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}
