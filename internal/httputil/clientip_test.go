package httputil

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		trust      bool
		want       string
	}{
		{"remote addr with port", "192.168.1.1:12345", "", "", false, "192.168.1.1"},
		{"ipv6 remote addr", "[::1]:12345", "", "", false, "::1"},
		{"remote addr without port", "192.168.1.1", "", "", false, "192.168.1.1"},
		{"headers ignored when untrusted", "10.0.0.1:1234", "1.2.3.4", "5.6.7.8", false, "10.0.0.1"},
		{"first forwarded hop", "10.0.0.1:1234", "1.2.3.4, 10.0.0.2", "", true, "1.2.3.4"},
		{"real ip fallback", "10.0.0.1:1234", "", "5.6.7.8", true, "5.6.7.8"},
		{"garbage forwarded value", "10.0.0.1:1234", "unknown", "", true, "10.0.0.1"},
		{"garbage xff then real ip", "10.0.0.1:1234", "not-an-ip", "5.6.7.8", true, "5.6.7.8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r, tt.trust); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
