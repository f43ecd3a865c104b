package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
)

func TestRedirectHasNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Redirect(rec, "/views/welcome", http.StatusFound)

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/views/welcome" {
		t.Errorf("Location = %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", rec.Body.String())
	}
}

func TestVisitWithoutRelayStillRedirects(t *testing.T) {
	h := Visit(deps.Deps{
		Logger:      logger.Nop(),
		TimeNow:     time.Now,
		Destination: "/next",
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want default 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/next" {
		t.Errorf("Location = %q", got)
	}
}
