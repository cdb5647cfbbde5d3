package util

import (
	"net/url"
	"testing"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"jamie@example.com": "j***@example.com",
		" a@b.co ":          "a***@b.co",
		"noatsign":          "no...gn",
		"@example.com":      "@exa....com",
	}
	for in, want := range cases {
		if got := MaskEmail(in); got != want {
			t.Fatalf("MaskEmail(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestMaskSensitiveQuery(t *testing.T) {
	raw := "payment_intent=pi_1&payment_intent_client_secret=pi_1_secret_abcdefgh&token=abcdefghijk&page=2"
	masked := MaskSensitiveQuery(raw)

	values, errParse := url.ParseQuery(masked)
	if errParse != nil {
		t.Fatalf("parse masked: %v", errParse)
	}
	if values.Get("payment_intent") != "pi_1" {
		t.Fatalf("expected payment_intent untouched, got %q", values.Get("payment_intent"))
	}
	if values.Get("payment_intent_client_secret") != "pi_1...efgh" {
		t.Fatalf("expected client secret masked, got %q", values.Get("payment_intent_client_secret"))
	}
	if values.Get("token") != "abcd...hijk" {
		t.Fatalf("expected token masked, got %q", values.Get("token"))
	}
	if values.Get("page") != "2" {
		t.Fatalf("expected page untouched, got %q", values.Get("page"))
	}
}

func TestMaskSensitiveQueryUnchanged(t *testing.T) {
	if got := MaskSensitiveQuery("a=1&b=2"); got != "a=1&b=2" {
		t.Fatalf("expected unchanged query, got %q", got)
	}
	if got := MaskSensitiveQuery(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("UNBOXME_DATA_DIR", "")
	if got := DataDir(); got != "data" {
		t.Fatalf("expected default data dir, got %q", got)
	}
	t.Setenv("UNBOXME_DATA_DIR", " /var/lib/unboxme/ ")
	if got := DataDir(); got != "/var/lib/unboxme" {
		t.Fatalf("expected cleaned dir, got %q", got)
	}
}
