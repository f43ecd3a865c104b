package deps

import (
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/logger"
	"github.com/MrSnakeDoc/visitrelay/internal/notify"
	"github.com/MrSnakeDoc/visitrelay/internal/relay"
	redisstore "github.com/MrSnakeDoc/visitrelay/internal/store/redis"
)

type Deps struct {
	Logger         logger.Logger
	StartTime      time.Time
	Version        string
	Commit         string
	BuildDate      string
	GoVersion      string
	TimeNow        func() time.Time  // for testing, defaults to time.Now
	AllowedCIDRS   []string          // IPs allowed to access healthz/readyz endpoints
	TrustProxy     bool              // true if running behind a trusted reverse proxy (e.g., cloudflared)
	EntryPath      string            // route that records visits
	Destination    string            // redirect target for visitors
	RedirectStatus int               // 3xx code used for the redirect
	Relay          *relay.Service    // extract/enrich/format/dispatch pipeline
	GeoCache       *redisstore.Store // nil when the label cache is disabled
	Queue          *notify.Queue     // nil when dispatch is synchronous
}
