package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/drinks/internal/metrics"
)

// KeySet serves RSA verification keys from a remote JWKS document.  The
// document is refetched when the cached copy is older than ttl or when an
// unknown kid is requested, so key rotation at the identity provider is
// picked up without a restart.  Concurrent refetches collapse into one
// request.  An unknown kid triggers at most one refetch per MinRefetch.
type KeySet struct {
	url    string
	ttl    time.Duration
	client *http.Client

	// MinRefetch is the shortest gap between downloads caused by an unknown
	// kid while the cached set is still fresh.
	MinRefetch time.Duration

	sfg     singleflight.Group
	mu      sync.RWMutex
	keys    map[string]*rsa.PublicKey
	fetched time.Time
}

// NewKeySet returns a KeySet for url.  A nil client means a 10-second
// timeout default client.
func NewKeySet(url string, ttl time.Duration, client *http.Client) *KeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{url: url, ttl: ttl, client: client, MinRefetch: defaultMinRefetch}
}

const (
	defaultMinRefetch = 30 * time.Second
	fetchTimeout      = 10 * time.Second
)

// Key returns the key with id kid.
func (s *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	k, fresh := s.lookup(kid)
	if k != nil && fresh {
		return k, nil
	}
	if fresh && !s.refetchAllowed() {
		return nil, ErrKeyNotFound
	}

	// The download is shared by every waiting caller, so it must not die
	// with the first caller's request.
	_, err, _ := s.sfg.Do("jwks", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return nil, s.refresh(fctx)
	})
	if err != nil {
		// Serve a stale key rather than failing outright.
		if k, _ := s.lookup(kid); k != nil {
			zap.S().Warnw("jwks refresh failed, using cached key", "kid", kid, "err", err)
			return k, nil
		}
		return nil, ErrKeysUnavailable
	}

	if k, _ := s.lookup(kid); k != nil {
		return k, nil
	}
	return nil, ErrKeyNotFound
}

func (s *KeySet) lookup(kid string) (*rsa.PublicKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[kid], time.Since(s.fetched) < s.ttl
}

func (s *KeySet) refetchAllowed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.fetched) >= s.MinRefetch
}

func (s *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.JWKSFetchErrorsTotal.Inc()
		return fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.JWKSFetchErrorsTotal.Inc()
		return fmt.Errorf("jwks fetch: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		metrics.JWKSFetchErrorsTotal.Inc()
		return fmt.Errorf("jwks decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if pub, ok := k.Key.(*rsa.PublicKey); ok && k.KeyID != "" {
			keys[k.KeyID] = pub
		}
	}

	s.mu.Lock()
	s.keys = keys
	s.fetched = time.Now()
	s.mu.Unlock()

	metrics.JWKSFetchTotal.Inc()
	zap.S().Debugw("jwks refreshed", "url", s.url, "keys", len(keys))
	return nil
}
