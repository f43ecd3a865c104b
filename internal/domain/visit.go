package domain

import (
	"strings"
	"time"
)

// TimestampLayout renders DD.MM.YYYY HH:MM:SS.
const TimestampLayout = "02.01.2006 15:04:05"

// NotificationHeader is the first line of every visit notification.
const NotificationHeader = "Neue Seitenaufruf-Benachrichtigung:"

// RequestContext carries what the extractor needs from the inbound request.
// It is built by the HTTP layer so the domain never touches *http.Request or
// the wall clock.
type RequestContext struct {
	RemoteAddr string
	UserAgent  string
	Now        time.Time
}

// VisitRecord is the per-request capture of the visitor.
type VisitRecord struct {
	NetworkAddress string
	UserAgent      string
	Timestamp      string
}

// GeoLabel is either "<city>, <country>" or the configured fallback.
type GeoLabel struct {
	Text string
}

func (g GeoLabel) String() string { return g.Text }

// Extract builds a VisitRecord. Address and user-agent are passed through
// untouched; the timestamp uses the server's local zone.
func Extract(rc RequestContext) VisitRecord {
	return VisitRecord{
		NetworkAddress: rc.RemoteAddr,
		UserAgent:      rc.UserAgent,
		Timestamp:      rc.Now.Local().Format(TimestampLayout),
	}
}

// NewGeoLabel returns "city, country".
func NewGeoLabel(city, country string) GeoLabel {
	return GeoLabel{Text: city + ", " + country}
}

// FormatNotification renders the operator message. Line order is fixed:
// time, location, IP, user-agent.
func FormatNotification(v VisitRecord, g GeoLabel) string {
	var b strings.Builder
	b.Grow(128 + len(v.UserAgent))
	b.WriteString("📌 ")
	b.WriteString(NotificationHeader)
	b.WriteString("\n\n")
	b.WriteString("🕒 Zeit: ")
	b.WriteString(v.Timestamp)
	b.WriteString("\n📍 Standort: ")
	b.WriteString(g.Text)
	b.WriteString("\n💻 IP: ")
	b.WriteString(v.NetworkAddress)
	b.WriteString("\n🌐 User-Agent: ")
	b.WriteString(v.UserAgent)
	return b.String()
}
