package security

import (
	"net/http/httptest"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.5:4321",
			want:       "203.0.113.5",
		},
		{
			name:       "forwarded through trusted proxy",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"},
			want:       "203.0.113.5",
		},
		{
			name:       "real ip through trusted proxy",
			remoteAddr: "127.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded header from untrusted peer is ignored",
			remoteAddr: "203.0.113.5:80",
			headers:    map[string]string{"X-Forwarded-For": "1.2.3.4"},
			want:       "203.0.113.5",
		},
		{
			name:       "garbage forwarded value falls back to peer",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := e.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	e := NewExtractor()
	if err := e.AddTrustedProxy("100.64.0.0/10"); err != nil {
		t.Fatalf("add trusted proxy: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "100.64.0.7:80"
	r.Header.Set("X-Real-IP", "203.0.113.9")
	if got := e.ExtractClientIP(r); got != "203.0.113.9" {
		t.Errorf("ExtractClientIP() = %q, want forwarded value", got)
	}

	if err := e.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("invalid CIDR accepted")
	}
}
