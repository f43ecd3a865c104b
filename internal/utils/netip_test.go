package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{
			name:       "ipv4 peer",
			remoteAddr: "1.2.3.4:5555",
			want:       "1.2.3.4",
		},
		{
			name:       "ipv6 peer",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
		{
			name:       "headers ignored without trust",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "9.9.9.9"},
			want:       "10.0.0.1",
		},
		{
			name:       "cloudflare header wins",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"CF-Connecting-IP": "8.8.8.8", "X-Forwarded-For": "9.9.9.9"},
			trustProxy: true,
			want:       "8.8.8.8",
		},
		{
			name:       "left-most forwarded for",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": " 9.9.9.9 , 10.0.0.2"},
			trustProxy: true,
			want:       "9.9.9.9",
		},
		{
			name:       "x-real-ip last",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "7.7.7.7"},
			trustProxy: true,
			want:       "7.7.7.7",
		},
		{
			name:       "trusted but no headers",
			remoteAddr: "10.0.0.1:1234",
			trustProxy: true,
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
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"127.0.0.1", "10.0.0.0/8", " ", "garbage", "2001:db8::/32"})

	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	cases := map[string]bool{
		"127.0.0.1":        true,
		"::ffff:127.0.0.1": true,
		"10.20.30.40":      true,
		"2001:db8::42":     true,
		"192.168.1.1":      false,
		"not-an-ip":        false,
		"":                 false,
	}
	for ip, want := range cases {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("nil list should give an empty matcher")
	}
}
