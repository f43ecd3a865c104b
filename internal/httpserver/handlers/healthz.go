package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/notify"
)

type healthzResponse struct {
	Status        string             `json:"status"`
	UptimeSeconds float64            `json:"uptime_seconds"`
	Version       string             `json:"version,omitempty"`
	Commit        string             `json:"commit,omitempty"`
	BuildDate     string             `json:"build_date,omitempty"`
	GoVersion     string             `json:"go_version,omitempty"`
	Dispatch      string             `json:"dispatch"`
	Queue         *notify.QueueStats `json:"queue,omitempty"`
}

func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: time.Since(start).Seconds(),
			Dispatch:      "sync",
		}
		if d.Queue != nil {
			stats := d.Queue.Stats()
			resp.Dispatch = "async"
			resp.Queue = &stats
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
