// internal/config/loader.go
//
// Configuration provider.
//
/*
Context
--------
`Provider.Load()` builds one immutable `Configuration` from an ordered list
of sources (see source.go), in four steps:

  1. Merge every source into one koanf tree.
  2. Check that each required key is present, resolve `vault:` references,
     and normalise `production_mode` to a bool.
  3. Unmarshal into the typed model.
  4. Validate with go-playground/validator.

Only a fully valid record is ever stored.  The stored pointer lives in an
`atomic.Pointer`, so `Get()` is lock-free and safe for concurrent readers.
`Load()` is serialised by a mutex and succeeds at most once; later calls
return the stored value unchanged.  A failed load leaves the provider
unloaded, so the caller may fix the environment and try again.

There is no package-level instance.  `cmd/drinks` constructs one Provider,
loads it once, and passes the resulting value to every consumer.

Instrumentation
---------------
  • DEBUG spans for each merged source.
  • ERROR span with the offending keys when loading fails.
  • INFO span "config loaded" with non-secret highlights.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/drinks/internal/metrics"
	"github.com/yanizio/drinks/internal/vault"
)

// requiredKeys must be present in the merged tree, in reporting order.
var requiredKeys = []string{
	"production_mode",
	"api_server_url",
	"identity_provider.domain_prefix",
	"identity_provider.audience",
	"identity_provider.client_id",
	"identity_provider.callback_url",
}

// SecretResolver fetches one key of a KV-v2 secret.  *vault.Client
// satisfies it.
type SecretResolver interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// Provider loads a Configuration once and hands out copies.  The zero value
// is not usable; construct with NewProvider.
type Provider struct {
	mu      sync.Mutex
	current atomic.Pointer[Configuration]
	secrets SecretResolver
	log     *zap.SugaredLogger
}

// Option customises a Provider.
type Option func(*Provider)

// WithSecrets enables `vault:` references.
func WithSecrets(r SecretResolver) Option {
	return func(p *Provider) { p.secrets = r }
}

// WithLogger overrides the global sugared logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Provider) { p.log = l }
}

// NewProvider returns an unloaded Provider.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = zap.S()
	}
	return p
}

// Load merges sources, validates the result, and stores it.  Once a load has
// succeeded, further calls return the stored value without reading sources.
func (p *Provider) Load(ctx context.Context, sources ...Source) (Configuration, error) {
	if c := p.current.Load(); c != nil {
		return *c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c := p.current.Load(); c != nil {
		return *c, nil
	}

	cfg, err := Build(ctx, p.secrets, p.log, sources...)
	if err != nil {
		metrics.ConfigLoadErrorsTotal.Inc()
		p.log.Errorw("config load failed", "fields", Fields(err), "err", err)
		return Configuration{}, err
	}

	p.current.Store(&cfg)
	p.log.Infow("config loaded",
		"production", cfg.ProductionMode,
		"api_server_url", cfg.APIServerURL,
		"auth_domain", cfg.IdentityProvider.Domain(),
		"listen_addr", cfg.HTTP.ListenAddr,
	)
	return cfg, nil
}

// Get returns the loaded Configuration, or ErrNotLoaded.
func (p *Provider) Get() (Configuration, error) {
	c := p.current.Load()
	if c == nil {
		return Configuration{}, ErrNotLoaded
	}
	return *c, nil
}

// Loaded reports whether Load has succeeded.
func (p *Provider) Loaded() bool { return p.current.Load() != nil }

// Build runs the merge, check, unmarshal, and validate pipeline without
// storing anything.  secrets may be nil when no source carries `vault:`
// references.
func Build(ctx context.Context, secrets SecretResolver, log *zap.SugaredLogger, sources ...Source) (Configuration, error) {
	if log == nil {
		log = zap.S()
	}

	k := koanf.New(".")
	for _, s := range sources {
		if err := s.load(k); err != nil {
			return Configuration{}, err
		}
		log.Debugw("config source merged", "source", s.Name())
	}

	var problems []error
	for _, key := range requiredKeys {
		switch {
		case !k.Exists(key):
			problems = append(problems, missing(key))
		case key != "production_mode" && !isScalar(k.Get(key)):
			problems = append(problems, invalid(key, "must be a string"))
		}
	}
	if err := normaliseBool(k, "production_mode"); err != nil {
		problems = append(problems, err)
	}
	if err := resolveSecrets(ctx, k, secrets); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return Configuration{}, errors.Join(problems...)
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return Configuration{}, fmt.Errorf("config unmarshal: %w: %w", ErrInvalidFormat, err)
	}
	if err := validateStruct(&cfg); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// isScalar is false for maps and lists.  koanf reports a key as present when
// it is only the parent of nested keys, e.g. `api_server_url: {a: b}`.
func isScalar(val any) bool {
	if val == nil {
		return true
	}
	switch reflect.ValueOf(val).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return false
	}
	return true
}

// normaliseBool accepts a native bool or any strconv.ParseBool spelling, so
// "true" from an env var and true from YAML end up identical.
func normaliseBool(k *koanf.Koanf, key string) error {
	if !k.Exists(key) {
		return nil
	}
	switch val := k.Get(key).(type) {
	case bool:
		return nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return invalid(key, "must be a boolean")
		}
		return k.Set(key, b)
	default:
		return invalid(key, "must be a boolean")
	}
}

// resolveSecrets swaps every `vault:` string for the secret it points at.
func resolveSecrets(ctx context.Context, k *koanf.Koanf, secrets SecretResolver) error {
	var problems []error
	for key, raw := range k.All() {
		s, ok := raw.(string)
		if !ok || !vault.IsRef(s) {
			continue
		}
		if secrets == nil {
			problems = append(problems, invalid(key, "vault reference but no secret store configured"))
			continue
		}
		path, field, err := vault.ParseRef(s)
		if err != nil {
			problems = append(problems, invalid(key, err.Error()))
			continue
		}
		val, err := secrets.GetKV(ctx, path, field, 0)
		if err != nil {
			problems = append(problems, invalid(key, "secret lookup failed: "+err.Error()))
			continue
		}
		if err := k.Set(key, val); err != nil {
			problems = append(problems, err)
		}
	}
	return errors.Join(problems...)
}
