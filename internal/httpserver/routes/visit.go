package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/handlers"
)

func init() { Register(registerVisit) }

// The entry route accepts any method: visitors are not expected to send a body.
func registerVisit(r chi.Router, d deps.Deps) {
	path := d.EntryPath
	if path == "" {
		path = "/"
	}
	r.HandleFunc(path, handlers.Visit(d))
}
