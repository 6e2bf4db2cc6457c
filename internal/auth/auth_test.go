package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://alexparra.eu.auth0.com/"
	testAudience = "fsnd-drinks.alex-parra.com"
)

type fixture struct {
	key     *rsa.PrivateKey
	srv     *httptest.Server
	fetches atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa key: %v", err)
	}
	f := &fixture{key: key}

	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.fetches.Add(1)
		set := jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key:       &key.PublicKey,
			KeyID:     "k1",
			Use:       "sig",
			Algorithm: "RS256",
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) verifier() *Verifier {
	return NewVerifier(NewKeySet(f.srv.URL, time.Minute, f.srv.Client()), testIssuer, testAudience)
}

func (f *fixture) sign(t *testing.T, kid string, mutate func(c *Claims)) string {
	t.Helper()
	c := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "auth0|barista",
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Permissions: []string{"get:drinks-detail"},
	}
	if mutate != nil {
		mutate(c)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(f.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestVerify_OK(t *testing.T) {
	f := newFixture(t)
	v := f.verifier()

	c, err := v.Verify(context.Background(), f.sign(t, "k1", nil))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if c.Subject != "auth0|barista" || len(c.Permissions) != 1 {
		t.Fatalf("unexpected claims: %+v", c)
	}

	// Second verification is served from the cached key set.
	if _, err := v.Verify(context.Background(), f.sign(t, "k1", nil)); err != nil {
		t.Fatalf("Verify again: %v", err)
	}
	if n := f.fetches.Load(); n != 1 {
		t.Fatalf("jwks fetched %d times, want 1", n)
	}
}

func TestVerify_Failures(t *testing.T) {
	f := newFixture(t)
	v := f.verifier()

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Issuer:    testIssuer,
		Audience:  jwt.ClaimStrings{testAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	forged.Header["kid"] = "k1"
	forgedStr, _ := forged.SignedString(other)

	cases := []struct {
		name string
		tok  string
		want *Error
	}{
		{"expired", f.sign(t, "k1", func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		}), ErrTokenExpired},
		{"wrong audience", f.sign(t, "k1", func(c *Claims) {
			c.Audience = jwt.ClaimStrings{"someone-else"}
		}), ErrInvalidClaims},
		{"wrong issuer", f.sign(t, "k1", func(c *Claims) {
			c.Issuer = "https://evil.example.com/"
		}), ErrInvalidClaims},
		{"unknown kid", f.sign(t, "k2", nil), ErrKeyNotFound},
		{"no kid", f.sign(t, "", nil), ErrKeyNotFound},
		{"garbage", "not.a.jwt", ErrMalformed},
		{"bad signature", forgedStr, ErrMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tc.tok)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestKeySet_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	ks := NewKeySet(srv.URL, time.Minute, srv.Client())
	if _, err := ks.Key(context.Background(), "k1"); !errors.Is(err, ErrKeysUnavailable) {
		t.Fatalf("err = %v, want ErrKeysUnavailable", err)
	}
}

func TestKeySet_UnknownKidThrottled(t *testing.T) {
	f := newFixture(t)
	ks := NewKeySet(f.srv.URL, time.Minute, f.srv.Client())
	ctx := context.Background()

	if _, err := ks.Key(ctx, "k1"); err != nil {
		t.Fatalf("Key(k1): %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := ks.Key(ctx, "rotated"); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("Key(rotated) err = %v, want ErrKeyNotFound", err)
		}
	}
	if n := f.fetches.Load(); n != 1 {
		t.Fatalf("jwks fetched %d times, want 1", n)
	}

	// Once the gap has passed an unknown kid may refetch again.
	ks.MinRefetch = 0
	if _, err := ks.Key(ctx, "rotated"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("Key(rotated) err = %v, want ErrKeyNotFound", err)
	}
	if n := f.fetches.Load(); n != 2 {
		t.Fatalf("jwks fetched %d times, want 2", n)
	}
}

func TestKeySet_FetchIgnoresCallerCancel(t *testing.T) {
	f := newFixture(t)
	ks := NewKeySet(f.srv.URL, time.Minute, f.srv.Client())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ks.Key(ctx, "k1"); err != nil {
		t.Fatalf("Key with cancelled caller: %v", err)
	}
	if n := f.fetches.Load(); n != 1 {
		t.Fatalf("jwks fetched %d times, want 1", n)
	}
}

func TestCheckPermission(t *testing.T) {
	if err := CheckPermission("post:drinks", &Claims{}); !errors.Is(err, ErrNoPermissions) {
		t.Fatalf("missing claim: err = %v", err)
	}
	if err := CheckPermission("post:drinks", &Claims{Permissions: []string{}}); !errors.Is(err, ErrPermissionMissing) {
		t.Fatalf("empty claim: err = %v", err)
	}
	if err := CheckPermission("post:drinks", &Claims{Permissions: []string{"post:drinks"}}); err != nil {
		t.Fatalf("granted: err = %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	cases := map[string]bool{
		"":           false,
		"Bearer abc": true,
		"bearer abc": true,
		"Basic abc":  false,
		"Bearer":     false,
		"Bearer a b": false,
		"Bearer ":    false,
	}
	for h, ok := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if h != "" {
			r.Header.Set("Authorization", h)
		}
		tok, err := TokenFromHeader(r)
		if ok && (err != nil || tok != "abc") {
			t.Errorf("%q: tok=%q err=%v", h, tok, err)
		}
		if !ok && !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("%q: err = %v, want ErrInvalidHeader", h, err)
		}
	}
}

func TestRequirePermission(t *testing.T) {
	f := newFixture(t)
	v := f.verifier()

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := RequirePermission(v, "get:drinks-detail", nil)(next)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"granted", "Bearer " + f.sign(t, "k1", nil), http.StatusOK},
		{"forbidden", "Bearer " + f.sign(t, "k1", func(c *Claims) {
			c.Permissions = []string{"get:drinks"}
		}), http.StatusForbidden},
		{"no permissions claim", "Bearer " + f.sign(t, "k1", func(c *Claims) {
			c.Permissions = nil
		}), http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/drinks-detail", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			if tc.want == http.StatusOK && seen == nil {
				t.Fatalf("claims not attached to context")
			}
		})
	}
}
