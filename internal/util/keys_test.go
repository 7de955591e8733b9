package util

import (
	"strings"
	"testing"
)

func TestKeyIsScopedByNamespace(t *testing.T) {
	k := Key("swr", "ns", "k1")
	if k != "swr:2:ns:k1" {
		t.Fatalf("Key = %q", k)
	}
	if !strings.HasPrefix(k, Scope("swr", "ns")) {
		t.Fatalf("key %q does not start with scope %q", k, Scope("swr", "ns"))
	}
}

func TestKeyNoCollisionAcrossColons(t *testing.T) {
	a := Key("swr", "a:b", "c")
	b := Key("swr", "a", "b:c")
	if a == b {
		t.Fatalf("keys collide: %q", a)
	}
	if strings.HasPrefix(b, Scope("swr", "a:b")) {
		t.Fatalf("id in ns %q leaked into scope of ns %q", "a", "a:b")
	}
}

func TestGlobEscape(t *testing.T) {
	cases := map[string]string{
		"plain":  "plain",
		"a*b":    `a\*b`,
		"q?":     `q\?`,
		"[x]":    `\[x\]`,
		`back\s`: `back\\s`,
	}
	for in, want := range cases {
		if got := GlobEscape(in); got != want {
			t.Fatalf("GlobEscape(%q) = %q want %q", in, got, want)
		}
	}
}
