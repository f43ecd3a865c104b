package handlers

import (
	"encoding/json"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
)

type geoCacheResponse struct {
	Address string `json:"address,omitempty"`
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// FlushGeoCache drops every cached geo label, forcing fresh lookups.
func FlushGeoCache(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.GeoCache == nil {
			writeGeoCache(w, d, http.StatusNotFound, geoCacheResponse{Error: "geo cache disabled"})
			return
		}

		deleted, err := d.GeoCache.FlushLabels(r.Context())
		if err != nil {
			d.Logger.Warn("geo cache flush failed",
				logger.Int("deleted", deleted),
				logger.Error(err))
			writeGeoCache(w, d, http.StatusServiceUnavailable, geoCacheResponse{Deleted: deleted, Error: err.Error()})
			return
		}

		d.Logger.Info("geo cache flushed via endpoint",
			logger.Int("deleted", deleted),
			logger.String("remote_ip", r.RemoteAddr))
		writeGeoCache(w, d, http.StatusOK, geoCacheResponse{Deleted: deleted})
	}
}

// InvalidateGeoLabel drops the cached label of one address.
func InvalidateGeoLabel(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "address")
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			writeGeoCache(w, d, http.StatusBadRequest, geoCacheResponse{Address: raw, Error: "invalid address"})
			return
		}
		if d.GeoCache == nil {
			writeGeoCache(w, d, http.StatusNotFound, geoCacheResponse{Address: raw, Error: "geo cache disabled"})
			return
		}

		address := addr.String()
		removed, err := d.GeoCache.InvalidateLabel(r.Context(), address)
		if err != nil {
			d.Logger.Warn("geo label invalidation failed",
				logger.String("address", address),
				logger.Error(err))
			writeGeoCache(w, d, http.StatusServiceUnavailable, geoCacheResponse{Address: address, Error: err.Error()})
			return
		}

		resp := geoCacheResponse{Address: address}
		if removed {
			resp.Deleted = 1
		}
		writeGeoCache(w, d, http.StatusOK, resp)
	}
}

func writeGeoCache(w http.ResponseWriter, d deps.Deps, status int, resp geoCacheResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
