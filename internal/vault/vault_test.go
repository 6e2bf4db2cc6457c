package vault

import (
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:kv/drinks/auth0#client_id")
	if err != nil {
		t.Fatalf("ParseRef: %v", err)
	}
	if path != "kv/drinks/auth0" || key != "client_id" {
		t.Fatalf("got path=%q key=%q", path, key)
	}
}

func TestParseRef_Bad(t *testing.T) {
	for _, in := range []string{
		"kv/drinks#client_id", // no prefix
		"vault:kv/drinks",     // no key
		"vault:kv/drinks#",    // empty key
		"vault:kv#client_id",  // mount only
		"vault:#client_id",    // empty path
	} {
		if _, _, err := ParseRef(in); !errors.Is(err, ErrBadRef) {
			t.Errorf("ParseRef(%q) err = %v, want ErrBadRef", in, err)
		}
	}
}

func TestIsRef(t *testing.T) {
	if !IsRef("vault:kv/x#y") {
		t.Fatal("vault: prefix not recognised")
	}
	if IsRef("http://127.0.0.1:5000") {
		t.Fatal("plain value treated as reference")
	}
}

func TestSplitMount(t *testing.T) {
	cases := []struct{ in, mount, rel string }{
		{"kv/drinks/auth0", "kv", "drinks/auth0"},
		{"secret/app", "secret", "app"},
		{"kv", "kv", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		m, r := splitMount(c.in)
		if m != c.mount || r != c.rel {
			t.Errorf("splitMount(%q) = %q, %q", c.in, m, r)
		}
	}
}

func TestConfigured(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	if Configured() {
		t.Fatal("Configured with empty VAULT_ADDR")
	}
	t.Setenv("VAULT_ADDR", "http://127.0.0.1:8200")
	if !Configured() {
		t.Fatal("not Configured with VAULT_ADDR set")
	}
}
