package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrSnakeDoc/deferlink/internal/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		remoteAddr string
		want       int
	}{
		{name: "empty list passes through", allowed: nil, remoteAddr: "203.0.113.1:1", want: http.StatusOK},
		{name: "inside cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "10.2.3.4:1", want: http.StatusOK},
		{name: "outside cidr", allowed: []string{"10.0.0.0/8"}, remoteAddr: "203.0.113.1:1", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, false, logger.NewNop())(okHandler)
			r := httptest.NewRequest(http.MethodGet, "/debug/links", nil)
			r.RemoteAddr = tt.remoteAddr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	h := EnforceHost([]string{"admin.example.com", "*.internal.example.com"}, logger.NewNop())(okHandler)

	cases := map[string]int{
		"admin.example.com":        http.StatusOK,
		"ops.internal.example.com": http.StatusOK,
		"go.example.com":           http.StatusForbidden,
	}
	for host, want := range cases {
		r := httptest.NewRequest(http.MethodPost, "/reload", nil)
		r.Host = host
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if rec.Code != want {
			t.Errorf("Host %s: status = %d, want %d", host, rec.Code, want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS()(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/create-link", nil)
	r.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(logger.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"error\":\"Internal server error\"}\n" {
		t.Errorf("body = %q", got)
	}
}
