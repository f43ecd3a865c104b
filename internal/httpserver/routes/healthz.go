package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/handlers"
)

func init() { Register(registerHealthz, operatorOnly) }

func registerHealthz(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
}
