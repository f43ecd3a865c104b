package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/handlers"
)

func init() { Register(registerGeoCache, operatorOnly) }

func registerGeoCache(r chi.Router, d deps.Deps) {
	r.Delete("/geo-cache", handlers.FlushGeoCache(d))
	r.Delete("/geo-cache/{address}", handlers.InvalidateGeoLabel(d))
}
