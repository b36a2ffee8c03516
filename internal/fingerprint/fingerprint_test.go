package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestGenerate(t *testing.T) {
	const ua = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"

	tests := []struct {
		name  string
		ua    string
		ip    string
		input string
	}{
		{name: "both present", ua: ua, ip: "203.0.113.7", input: ua + ":203.0.113.7"},
		{name: "missing user agent", ua: "", ip: "203.0.113.7", input: "unknown:203.0.113.7"},
		{name: "missing ip", ua: ua, ip: "", input: ua + ":unknown"},
		{name: "both missing", ua: "", ip: "", input: "unknown:unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.ua, tt.ip)
			sum := sha256.Sum256([]byte(tt.input))
			if want := hex.EncodeToString(sum[:]); got != want {
				t.Errorf("Generate() = %s, want %s", got, want)
			}
			if !hexDigest.MatchString(got) {
				t.Errorf("Generate() = %q, not a lowercase hex digest", got)
			}
		})
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate("ua", "10.0.0.1")
	for i := 0; i < 10; i++ {
		if b := Generate("ua", "10.0.0.1"); b != a {
			t.Fatalf("Generate() not stable: %s != %s", a, b)
		}
	}
}

func TestGenerateSensitiveToInputs(t *testing.T) {
	base := Generate("ua", "10.0.0.1")
	if Generate("ua2", "10.0.0.1") == base {
		t.Error("changing the user agent should change the fingerprint")
	}
	if Generate("ua", "10.0.0.2") == base {
		t.Error("changing the ip should change the fingerprint")
	}
	if Generate("", "") != Generate(Unknown, Unknown) {
		t.Error("missing inputs should hash like the literal unknown")
	}
}
