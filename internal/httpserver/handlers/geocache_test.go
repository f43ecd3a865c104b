package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/visitrelay/internal/httpserver/deps"
	"github.com/MrSnakeDoc/visitrelay/internal/logger"
	redisstore "github.com/MrSnakeDoc/visitrelay/internal/store/redis"
)

func cacheDeps(t *testing.T) (*miniredis.Miniredis, deps.Deps) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, deps.Deps{Logger: logger.Nop(), GeoCache: redisstore.NewStore(client)}
}

func withAddress(r *http.Request, address string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("address", address)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeGeoCache(t *testing.T, rec *httptest.ResponseRecorder) geoCacheResponse {
	t.Helper()
	var resp geoCacheResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestFlushGeoCache(t *testing.T) {
	mr, d := cacheDeps(t)
	ctx := context.Background()
	for _, addr := range []string{"1.1.1.1", "2.2.2.2"} {
		if err := d.GeoCache.SetLabel(ctx, addr, "X, Y", time.Hour); err != nil {
			t.Fatalf("SetLabel(%s) = %v", addr, err)
		}
	}

	rec := httptest.NewRecorder()
	FlushGeoCache(d)(rec, httptest.NewRequest(http.MethodDelete, "/geo-cache", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeGeoCache(t, rec).Deleted; got != 2 {
		t.Errorf("deleted = %d, want 2", got)
	}
	if mr.Exists(redisstore.GeoKey("1.1.1.1")) {
		t.Error("label should be gone after flush")
	}
}

func TestInvalidateGeoLabel(t *testing.T) {
	mr, d := cacheDeps(t)
	if err := d.GeoCache.SetLabel(context.Background(), "1.2.3.4", "Berlin, Deutschland", time.Hour); err != nil {
		t.Fatalf("SetLabel() = %v", err)
	}

	tests := []struct {
		name        string
		address     string
		wantStatus  int
		wantDeleted int
	}{
		{name: "cached", address: "1.2.3.4", wantStatus: http.StatusOK, wantDeleted: 1},
		{name: "already gone", address: "1.2.3.4", wantStatus: http.StatusOK, wantDeleted: 0},
		{name: "not an address", address: "berlin", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withAddress(httptest.NewRequest(http.MethodDelete, "/geo-cache/"+tt.address, nil), tt.address)
			InvalidateGeoLabel(d)(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeGeoCache(t, rec).Deleted; got != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", got, tt.wantDeleted)
			}
		})
	}

	if mr.Exists(redisstore.GeoKey("1.2.3.4")) {
		t.Error("label should be invalidated")
	}
}

func TestGeoCacheEndpointsWithoutCache(t *testing.T) {
	d := deps.Deps{Logger: logger.Nop()}

	rec := httptest.NewRecorder()
	FlushGeoCache(d)(rec, httptest.NewRequest(http.MethodDelete, "/geo-cache", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("flush status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	InvalidateGeoLabel(d)(rec, withAddress(httptest.NewRequest(http.MethodDelete, "/geo-cache/1.2.3.4", nil), "1.2.3.4"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("invalidate status = %d, want 404", rec.Code)
	}
}

func TestGeoCacheRedisDown(t *testing.T) {
	mr, d := cacheDeps(t)
	mr.Close()

	rec := httptest.NewRecorder()
	FlushGeoCache(d)(rec, httptest.NewRequest(http.MethodDelete, "/geo-cache", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if decodeGeoCache(t, rec).Error == "" {
		t.Error("expected error in body")
	}
}
