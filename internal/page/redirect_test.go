package page

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRedirectWithFallback(t *testing.T) {
	body, err := RenderRedirect("myapp://open?url=https%3A%2F%2Fx.com&linkId=abc", "https://x.com/get", 2500*time.Millisecond)
	require.NoError(t, err)
	html := string(body)

	assert.Contains(t, html, `href="https://x.com/get"`)
	assert.Contains(t, html, "Open in Browser")
	assert.Contains(t, html, "2500")
	assert.Contains(t, html, "myapp:")
	assert.Contains(t, html, "linkId=abc")
}

func TestRenderRedirectWithoutFallback(t *testing.T) {
	body, err := RenderRedirect("myapp://open?url=x", "", 0)
	require.NoError(t, err)
	html := string(body)

	assert.NotContains(t, html, "Open in Browser")
	assert.Contains(t, html, FailureMessage)
	assert.Contains(t, html, "3000")
}

func TestRenderRedirectEscapesHostileInput(t *testing.T) {
	body, err := RenderRedirect(`myapp://open";alert(1);//`, `javascript:alert(1)`, time.Second)
	require.NoError(t, err)
	html := string(body)

	assert.NotContains(t, html, `open";alert(1)`)
	assert.False(t, strings.Contains(html, "javascript:alert"), "unsafe fallback scheme must be dropped")
	assert.NotContains(t, html, "Open in Browser")
	assert.Contains(t, html, FailureMessage)
}

func TestSafeFallback(t *testing.T) {
	tests := map[string]string{
		"https://x.com/a?b=1": "https://x.com/a?b=1",
		"http://x.com":        "http://x.com",
		"javascript:alert(1)": "",
		"myapp://open":        "",
		"/relative":           "",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeFallback(in), "input %q", in)
	}
}

func TestRenderRedirectWithoutAppURL(t *testing.T) {
	body, err := RenderRedirect("", "https://x.com/get", time.Second)
	require.NoError(t, err)
	html := string(body)

	assert.Contains(t, html, `var appUrl = "";`)
	assert.Contains(t, html, "if (appUrl)")
	assert.Contains(t, html, `href="https://x.com/get"`)
}
