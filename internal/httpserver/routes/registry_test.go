package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

func withRegistry(t *testing.T, entries func()) {
	t.Helper()
	saved := registry
	registry = nil
	t.Cleanup(func() { registry = saved })
	entries()
}

func tagged(value string) Middleware {
	return func(d deps.Deps) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Add("X-Tag", value+":"+d.Version)
				next.ServeHTTP(w, r)
			})
		}
	}
}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRegisterAllAppliesMiddlewarePerRegistrar(t *testing.T) {
	withRegistry(t, func() {
		Register(func(r chi.Router, _ deps.Deps) { r.Get("/plain", ok) })
		Register(func(r chi.Router, _ deps.Deps) { r.Get("/tagged", ok) }, tagged("a"), tagged("b"))
	})

	r := chi.NewRouter()
	RegisterAll(r, deps.Deps{Version: "v1"})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tagged", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"a:v1", "b:v1"}, rec.Header().Values("X-Tag"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Values("X-Tag"))
}

func TestRateLimitedRegistrarsDoNotShareBuckets(t *testing.T) {
	withRegistry(t, func() {
		Register(func(r chi.Router, _ deps.Deps) { r.Get("/one", ok) }, rateLimited)
		Register(func(r chi.Router, _ deps.Deps) { r.Get("/two", ok) }, rateLimited)
	})

	r := chi.NewRouter()
	RegisterAll(r, deps.Deps{Logger: logger.NewNop(), RateLimitBurst: 1, RateLimitPerMin: 1})

	hit := func(path string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "198.51.100.7:1"
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, hit("/one"))
	assert.Equal(t, http.StatusTooManyRequests, hit("/one"))
	assert.Equal(t, http.StatusOK, hit("/two"))
}
