package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz always reports ready: a missing cache only slows geo lookups and
// visitors are redirected no matter what. Mode tells "optimal" from "degraded".
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"geo_cache": checkGeoCache(r.Context(), d),
			"dispatch":  checkDispatch(d),
		}

		mode := "optimal"
		for _, c := range components {
			if !c.OK {
				mode = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(readyzResponse{
			Ready:      true,
			Mode:       mode,
			Components: components,
		})
	}
}

func checkGeoCache(ctx context.Context, d deps.Deps) componentStatus {
	if d.GeoCache == nil {
		return componentStatus{OK: true, Mode: "disabled", Impact: "every visit queries the geo service"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.GeoCache.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "geo-cache-bypassed",
			Error:  err.Error(),
		}
	}
	return componentStatus{OK: true, Mode: "redis"}
}

func checkDispatch(d deps.Deps) componentStatus {
	if d.Queue == nil {
		return componentStatus{OK: true, Mode: "sync"}
	}
	stats := d.Queue.Stats()
	if stats.Pending >= stats.Capacity {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "new-notifications-dropped",
			Error:  "queue full",
		}
	}
	return componentStatus{OK: true, Mode: "async"}
}
