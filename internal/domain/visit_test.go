package domain

import (
	"strings"
	"testing"
	"time"
)

func TestExtract(t *testing.T) {
	now := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		rc   RequestContext
		want VisitRecord
	}{
		{
			name: "all fields",
			rc:   RequestContext{RemoteAddr: "1.2.3.4", UserAgent: "TestAgent/1.0", Now: now},
			want: VisitRecord{NetworkAddress: "1.2.3.4", UserAgent: "TestAgent/1.0", Timestamp: "01.01.2024 12:00:00"},
		},
		{
			name: "empty user agent stays empty",
			rc:   RequestContext{RemoteAddr: "2001:db8::1", Now: now},
			want: VisitRecord{NetworkAddress: "2001:db8::1", UserAgent: "", Timestamp: "01.01.2024 12:00:00"},
		},
		{
			name: "raw values are not sanitized",
			rc:   RequestContext{RemoteAddr: "10.0.0.1", UserAgent: "<script>\n", Now: now},
			want: VisitRecord{NetworkAddress: "10.0.0.1", UserAgent: "<script>\n", Timestamp: "01.01.2024 12:00:00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.rc); got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtractPadsTimestamp(t *testing.T) {
	now := time.Date(2025, time.March, 7, 9, 5, 3, 0, time.Local)
	got := Extract(RequestContext{Now: now}).Timestamp
	if got != "07.03.2025 09:05:03" {
		t.Errorf("Timestamp = %q", got)
	}
}

func TestNewGeoLabel(t *testing.T) {
	if got := NewGeoLabel("Berlin", "Deutschland").String(); got != "Berlin, Deutschland" {
		t.Errorf("NewGeoLabel() = %q", got)
	}
}

func TestFormatNotification(t *testing.T) {
	v := VisitRecord{NetworkAddress: "1.2.3.4", UserAgent: "TestAgent/1.0", Timestamp: "01.01.2024 12:00:00"}
	g := GeoLabel{Text: "Berlin, Deutschland"}

	want := "📌 Neue Seitenaufruf-Benachrichtigung:\n\n" +
		"🕒 Zeit: 01.01.2024 12:00:00\n" +
		"📍 Standort: Berlin, Deutschland\n" +
		"💻 IP: 1.2.3.4\n" +
		"🌐 User-Agent: TestAgent/1.0"

	got := FormatNotification(v, g)
	if got != want {
		t.Fatalf("FormatNotification() =\n%s\nwant\n%s", got, want)
	}

	// order: time, location, IP, user-agent
	last := -1
	for _, field := range []string{v.Timestamp, g.Text, v.NetworkAddress, v.UserAgent} {
		idx := strings.Index(got, field)
		if idx <= last {
			t.Errorf("field %q out of order (idx=%d, prev=%d)", field, idx, last)
		}
		last = idx
	}

	if again := FormatNotification(v, g); again != got {
		t.Error("FormatNotification() is not deterministic")
	}
}

func TestFormatNotificationEmptyUserAgent(t *testing.T) {
	got := FormatNotification(VisitRecord{NetworkAddress: "1.2.3.4", Timestamp: "01.01.2024 12:00:00"}, GeoLabel{Text: "Unbekannt"})
	if !strings.HasSuffix(got, "🌐 User-Agent: ") {
		t.Errorf("expected empty user-agent line, got %q", got)
	}
	if !strings.Contains(got, "📍 Standort: Unbekannt\n") {
		t.Errorf("fallback label missing: %q", got)
	}
}
