package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/domain"
	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
	"github.com/MrSnakeDoc/visitrelay/internal/utils"
)

// Visit records the visit and redirects. The redirect is unconditional:
// nothing the relay does (including a panic) can prevent it.
func Visit(d deps.Deps) http.HandlerFunc {
	now := d.TimeNow
	if now == nil {
		now = time.Now
	}
	status := d.RedirectStatus
	if status == 0 {
		status = http.StatusFound
	}

	return func(w http.ResponseWriter, r *http.Request) {
		rc := domain.RequestContext{
			RemoteAddr: utils.ClientIP(r, d.TrustProxy),
			UserAgent:  r.UserAgent(),
			Now:        now(),
		}

		record(d, r, rc)

		Redirect(w, d.Destination, status)
	}
}

func record(d deps.Deps, r *http.Request, rc domain.RequestContext) {
	defer func() {
		if rec := recover(); rec != nil {
			d.Logger.Error("visit relay panicked, redirecting anyway",
				logger.String("address", rc.RemoteAddr),
				logger.String("panic", fmt.Sprint(rec)))
		}
	}()
	if d.Relay == nil {
		return
	}
	d.Relay.Handle(r.Context(), rc)
}

// Redirect writes a bodyless redirect. http.Redirect is avoided because it
// emits an HTML body for GET requests.
func Redirect(w http.ResponseWriter, location string, status int) {
	h := w.Header()
	h.Set("Location", location)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
}
