package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/deferlink/internal/attribution"
	"github.com/MrSnakeDoc/deferlink/internal/config"
	"github.com/MrSnakeDoc/deferlink/internal/httpserver/deps"
	"github.com/MrSnakeDoc/deferlink/internal/index"
	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

const (
	phoneUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"
	phoneAddr = "198.51.100.7:50123"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newTestHandler(t *testing.T, mutate ...func(*deps.Deps)) http.Handler {
	t.Helper()

	log := logger.NewNop()
	engine := attribution.NewEngine(index.NewLinkRegistry(), index.NewPendingStore(), attribution.Options{
		Logger:                 log,
		AllowCustomFingerprint: true,
	})

	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         "test",
		Engine:          engine,
		FallbackDelay:   3 * time.Second,
		DebugRoutes:     true,
		RateLimitBurst:  1000,
		RateLimitPerMin: 1000,
		TrustProxy:      false,
	}
	for _, m := range mutate {
		m(&d)
	}

	return New(&config.Config{ListenPort: ":0"}, log, d).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	r.Header.Set("User-Agent", phoneUA)
	r.RemoteAddr = phoneAddr
	for _, o := range opts {
		o(r)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func createLink(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/create-link", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)["linkId"].(string)
}

func TestDeferredDeepLinkFlow(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/create-link",
		`{"originalUrl":"https://shop.example.com/p/42","appScheme":"shopapp","campaign":"spring","customData":{"promo":"SPRING10"}}`,
		func(r *http.Request) {
			r.Host = "go.example.com"
			r.Header.Set("X-Forwarded-Proto", "http")
		})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	created := decode(t, rec)
	linkID := created["linkId"].(string)
	assert.Regexp(t, hexID, linkID)
	assert.Equal(t, "http://go.example.com/link/"+linkID, created["trackableUrl"])
	assert.Equal(t, "https://shop.example.com/p/42", created["originalUrl"])
	assert.Equal(t, "shopapp", created["appScheme"])

	// click
	rec = do(t, h, http.MethodGet, "/link/"+linkID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "shopapp:")
	assert.Contains(t, rec.Body.String(), "linkId="+linkID)

	// first open from the same device
	rec = do(t, h, http.MethodPost, "/check-deferred-link", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode(t, rec)
	assert.Equal(t, true, res["hasDeepLink"])
	assert.NotEmpty(t, res["timestamp"])

	data := res["deepLinkData"].(map[string]any)
	assert.Equal(t, linkID, data["linkId"])
	assert.Equal(t, "spring", data["campaign"])
	assert.Equal(t, "https://shop.example.com/p/42", data["originalUrl"])
	assert.Equal(t, map[string]any{"promo": "SPRING10"}, data["customData"])
	assert.NotEmpty(t, data["clickId"])

	// at most once
	rec = do(t, h, http.MethodPost, "/check-deferred-link", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hasDeepLink":false}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/analytics/"+linkID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode(t, rec)
	assert.Equal(t, linkID, stats["linkId"])
	assert.Equal(t, float64(1), stats["clicks"])
	assert.Equal(t, float64(1), stats["installs"])
	assert.Equal(t, "100.00", stats["conversionRate"])
	assert.NotEmpty(t, stats["createdAt"])
}

func TestCheckDeferredLinkOtherDevice(t *testing.T) {
	h := newTestHandler(t)
	linkID := createLink(t, h, `{"originalUrl":"https://x.com","appScheme":"myapp"}`)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/link/"+linkID, "").Code)

	rec := do(t, h, http.MethodPost, "/check-deferred-link", `{}`, func(r *http.Request) {
		r.RemoteAddr = "203.0.113.99:4000"
	})
	assert.JSONEq(t, `{"hasDeepLink":false}`, rec.Body.String())
}

func TestCheckDeferredLinkCustomFingerprint(t *testing.T) {
	h := newTestHandler(t)
	linkID := createLink(t, h, `{"originalUrl":"https://x.com","appScheme":"myapp"}`)

	rec := do(t, h, http.MethodGet, "/get-fingerprint", "")
	require.Equal(t, http.StatusOK, rec.Code)
	fp := decode(t, rec)["fingerprint"].(string)
	assert.Regexp(t, `^[0-9a-f]{64}$`, fp)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/link/"+linkID, "").Code)

	// the app reports the browser fingerprint from a different network
	rec = do(t, h, http.MethodPost, "/check-deferred-link", `{"customFingerprint":"`+fp+`"}`, func(r *http.Request) {
		r.RemoteAddr = "203.0.113.99:4000"
		r.Header.Set("User-Agent", "ShopApp/1.0")
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["hasDeepLink"])
}

func TestErrorResponses(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{
			name: "unknown link redirect", method: http.MethodGet, path: "/link/nope",
			status: http.StatusNotFound, want: `{"error":"Link not found"}`,
		},
		{
			name: "unknown link analytics", method: http.MethodGet, path: "/analytics/nope",
			status: http.StatusNotFound, want: `{"error":"Link not found"}`,
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/create-link", body: `{"originalUrl":"https://x.com"}`,
			status: http.StatusBadRequest, want: `{"error":"originalUrl and appScheme are required"}`,
		},
		{
			name: "script app scheme", method: http.MethodPost, path: "/create-link", body: `{"originalUrl":"\nalert(document.domain)//","appScheme":"javascript"}`,
			status: http.StatusBadRequest, want: `{"error":"invalid appScheme"}`,
		},
		{
			name: "empty body", method: http.MethodPost, path: "/create-link",
			status: http.StatusBadRequest, want: `{"error":"originalUrl and appScheme are required"}`,
		},
		{
			name: "malformed json", method: http.MethodPost, path: "/create-link", body: `{"originalUrl":`,
			status: http.StatusBadRequest, want: `{"error":"invalid JSON body"}`,
		},
		{
			name: "malformed deferred body", method: http.MethodPost, path: "/check-deferred-link", body: `[1,2`,
			status: http.StatusBadRequest, want: `{"error":"invalid JSON body"}`,
		},
		{
			name: "unknown route", method: http.MethodGet, path: "/nope",
			status: http.StatusNotFound, want: `{"error":"Route not found","path":"/nope","method":"GET"}`,
		},
		{
			name: "wrong method", method: http.MethodGet, path: "/create-link",
			status: http.StatusMethodNotAllowed, want: `{"error":"Method not allowed","path":"/create-link","method":"GET"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestDebugRoutes(t *testing.T) {
	h := newTestHandler(t)
	linkID := createLink(t, h, `{"originalUrl":"https://x.com","appScheme":"myapp","medium":"email"}`)

	rec := do(t, h, http.MethodGet, "/debug/links", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var links []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &links))
	require.Len(t, links, 1)
	assert.Equal(t, linkID, links[0]["id"])
	assert.Equal(t, "email", links[0]["medium"])

	rec = do(t, h, http.MethodPost, "/debug/clear-data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"All data cleared"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/analytics/"+linkID, "").Code)
}

func TestDebugRoutesDisabled(t *testing.T) {
	h := newTestHandler(t, func(d *deps.Deps) { d.DebugRoutes = false })

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/debug/links", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/debug/clear-data", "").Code)
}

func TestDebugRoutesRestrictedByCIDR(t *testing.T) {
	h := newTestHandler(t, func(d *deps.Deps) { d.AllowedCIDRS = []string{"10.0.0.0/8"} })

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/debug/links", "").Code)

	rec := do(t, h, http.MethodGet, "/debug/links", "", func(r *http.Request) { r.RemoteAddr = "10.1.1.1:1" })
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckDeferredLinkRateLimited(t *testing.T) {
	h := newTestHandler(t, func(d *deps.Deps) {
		d.RateLimitBurst = 2
		d.RateLimitPerMin = 1
	})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/check-deferred-link", "").Code)
	}
	rec := do(t, h, http.MethodPost, "/check-deferred-link", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// link creation from the same IP is not throttled
	for i := 0; i < 5; i++ {
		createLink(t, h, `{"originalUrl":"https://x.com","appScheme":"myapp"}`)
	}
}

func TestReload(t *testing.T) {
	t.Run("no seed file", func(t *testing.T) {
		h := newTestHandler(t)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodPost, "/reload", "").Code)
	})

	t.Run("queued once", func(t *testing.T) {
		trigger := make(chan struct{}, 1)
		h := newTestHandler(t, func(d *deps.Deps) { d.ReloadTrigger = trigger })

		assert.Equal(t, http.StatusAccepted, do(t, h, http.MethodPost, "/reload", "").Code)
		assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/reload", "").Code)
		assert.Len(t, trigger, 1)
	})
}

func TestServiceEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	banner := decode(t, rec)
	assert.Equal(t, "test", banner["version"])
	assert.Contains(t, banner["endpoints"], "POST /check-deferred-link")
	assert.Contains(t, banner["endpoints"], "GET /debug/links")

	rec = do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/readyz", "")
	assert.JSONEq(t, `{"ready":true}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/infra", "")
	require.Equal(t, http.StatusOK, rec.Code)
	infra := decode(t, rec)
	assert.Equal(t, "optimal", infra["mode"])
	assert.Equal(t, "24h0m0s", infra["session_ttl"])
	components := infra["components"].(map[string]any)
	assert.Contains(t, components, "redis")
	assert.Contains(t, components, "seed")
}

func TestCORSPreflightOnRouter(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodOptions, "/check-deferred-link", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://app.example.com")
		r.Header.Set("Access-Control-Request-Method", "POST")
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
